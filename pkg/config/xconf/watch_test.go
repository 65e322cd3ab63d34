package xconf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reload struct {
	s   Settings
	err error
}

func TestWatch_Reload(t *testing.T) {
	path := writeFile(t, "xgql.yaml", "log:\n  level: info\n")

	got := make(chan reload, 8)
	w, err := Watch(path, func(s Settings, err error) { got <- reload{s, err} },
		WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	select {
	case r := <-got:
		require.NoError(t, r.err)
		assert.Equal(t, "debug", r.s.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not called")
	}
}

func TestWatch_InvalidContentReportsError(t *testing.T) {
	path := writeFile(t, "xgql.yaml", "log:\n  level: info\n")

	got := make(chan reload, 8)
	w, err := Watch(path, func(s Settings, err error) { got <- reload{s, err} },
		WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))

	select {
	case r := <-got:
		assert.ErrorIs(t, r.err, ErrInvalidConfig)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not called")
	}
}

func TestWatch_StopIsIdempotent(t *testing.T) {
	path := writeFile(t, "xgql.yaml", "")
	w, err := Watch(path, nil)
	require.NoError(t, err)

	w.Start()
	w.Start()
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	w.Start() // 停止后不再启动
}

func TestWatch_StopWithoutStart(t *testing.T) {
	path := writeFile(t, "xgql.yaml", "")
	w, err := Watch(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Stop())
}

func TestWatch_Errors(t *testing.T) {
	_, err := Watch("", nil)
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = Watch("xgql.ini", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Watch("/nonexistent-dir-for-xconf/xgql.yaml", nil)
	assert.Error(t, err)
}
