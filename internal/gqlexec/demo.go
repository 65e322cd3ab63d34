package gqlexec

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/omeyang/xgql/pkg/graphql/xdataloader"
	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
)

// DemoSDL demo schema。
const DemoSDL = `
directive @noInstrumentation on FIELD_DEFINITION

type Query {
  ping: String!
  hello(name: String = "world"): String!
  user(id: ID!): User
  users(ids: [ID!]!): [User]!
  search(text: String!): [SearchResult!]!
  slow(ms: Int = 5): String!
  fail(detail: String = "SERVICE_ERROR"): String
  boom: String
  secret: String @noInstrumentation
}

type Mutation {
  setGreeting(text: String!): String!
}

interface Node {
  id: ID!
}

type User implements Node {
  id: ID!
  name: String!
  friends: [User!]!
}

type Post implements Node {
  id: ID!
  title: String!
  author: User!
}

union SearchResult = User | Post
`

// demoData demo 数据源，按 ID 保存用户与文章。
type demoData struct {
	mu       sync.RWMutex
	greeting string
	users    map[string]map[string]any
	posts    []map[string]any
}

func newDemoData() *demoData {
	user := func(id, name string, friends ...string) map[string]any {
		return map[string]any{"__typename": "User", "id": id, "name": name, "friendIds": friends}
	}
	return &demoData{
		greeting: "hello",
		users: map[string]map[string]any{
			"1": user("1", "Ada", "2", "3"),
			"2": user("2", "Grace", "1"),
			"3": user("3", "Linus"),
		},
		posts: []map[string]any{
			{"__typename": "Post", "id": "p1", "title": "Notes on the Analytical Engine", "authorId": "1"},
			{"__typename": "Post", "id": "p2", "title": "Compilers for humans", "authorId": "2"},
		},
	}
}

// usersByID 按 key 顺序返回用户，不存在的为 nil。
func (d *demoData) usersByID(_ context.Context, ids []string) ([]map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		if u, ok := d.users[id]; ok {
			out[i] = u
		}
	}
	return out, nil
}

// NewDemoSchema 创建 demo schema。用户加载经过 loaders 埋点，loaders 为 nil 时不埋点。
func NewDemoSchema(loaders *xdataloader.Provider) (*Schema, error) {
	d := newDemoData()
	loadUsers := xdataloader.Wrap(loaders, "userById", d.usersByID)

	one := func(ctx context.Context, id string) (any, error) {
		users, err := loadUsers(ctx, []string{id})
		if err != nil || users[0] == nil {
			return nil, err
		}
		return users[0], nil
	}
	many := func(ctx context.Context, ids []string) (any, error) {
		users, err := loadUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(users))
		for i, u := range users {
			if u != nil {
				out[i] = u
			}
		}
		return out, nil
	}

	return NewSchema(DemoSDL, Resolvers{
		"Query.ping": func(context.Context, ResolveParams) (any, error) {
			return "pong", nil
		},
		"Query.hello": func(_ context.Context, p ResolveParams) (any, error) {
			d.mu.RLock()
			defer d.mu.RUnlock()
			name, _ := p.Args["name"].(string)
			return d.greeting + ", " + name, nil
		},
		"Query.user": func(ctx context.Context, p ResolveParams) (any, error) {
			id, _ := p.Args["id"].(string)
			return one(ctx, id)
		},
		"Query.users": func(ctx context.Context, p ResolveParams) (any, error) {
			return many(ctx, stringList(p.Args["ids"]))
		},
		"Query.search": func(_ context.Context, p ResolveParams) (any, error) {
			text, _ := p.Args["text"].(string)
			text = strings.ToLower(text)
			d.mu.RLock()
			defer d.mu.RUnlock()
			var out []any
			for _, id := range []string{"1", "2", "3"} {
				if strings.Contains(strings.ToLower(d.users[id]["name"].(string)), text) {
					out = append(out, d.users[id])
				}
			}
			for _, post := range d.posts {
				if strings.Contains(strings.ToLower(post["title"].(string)), text) {
					out = append(out, post)
				}
			}
			return out, nil
		},
		"Query.slow": func(_ context.Context, p ResolveParams) (any, error) {
			ms := intArg(p.Args["ms"])
			return Async(func(ctx context.Context) (any, error) {
				select {
				case <-time.After(time.Duration(ms) * time.Millisecond):
					return "done", nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}), nil
		},
		"Query.fail": func(_ context.Context, p ResolveParams) (any, error) {
			raw, _ := p.Args["detail"].(string)
			detail, ok := xgqlerr.ParseErrorDetail(raw)
			if !ok {
				return nil, errors.New("unclassified failure")
			}
			return nil, xgqlerr.Newf(detail, "requested failure %s", detail)
		},
		"Query.boom": func(context.Context, ResolveParams) (any, error) {
			panic("boom")
		},
		"Query.secret": func(context.Context, ResolveParams) (any, error) {
			return "hidden", nil
		},
		"Mutation.setGreeting": func(_ context.Context, p ResolveParams) (any, error) {
			text, _ := p.Args["text"].(string)
			d.mu.Lock()
			defer d.mu.Unlock()
			d.greeting = text
			return text, nil
		},
		"User.friends": func(ctx context.Context, p ResolveParams) (any, error) {
			u, _ := p.Source.(map[string]any)
			ids, _ := u["friendIds"].([]string)
			return many(ctx, ids)
		},
		"Post.author": func(ctx context.Context, p ResolveParams) (any, error) {
			post, _ := p.Source.(map[string]any)
			id, _ := post["authorId"].(string)
			return one(ctx, id)
		},
	})
}

// intArg 字面量参数为 int64，JSON 变量为 float64 或 json.Number。
func intArg(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
