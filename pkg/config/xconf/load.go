package xconf

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load 从文件加载配置，格式由扩展名（.yaml/.yml/.json）决定。
func Load(path string) (Settings, error) {
	if path == "" {
		return Settings{}, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return Settings{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return LoadBytes(data, format)
}

// LoadBytes 从字节数据加载配置。空数据得到 Default()。
func LoadBytes(data []byte, format Format) (Settings, error) {
	parser, err := parserFor(format)
	if err != nil {
		return Settings{}, err
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Settings{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	// 在默认值上覆盖，文件中缺失的键保持默认
	s := Default()
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
