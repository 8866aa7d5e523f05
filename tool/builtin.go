package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileTools returns the built-in sandboxed filesystem tools: read_file,
// write_file and list_files. All paths are resolved through sb, so traversal
// outside the sandbox root fails before any filesystem access happens.
func FileTools(sb *Sandbox) []*Definition {
	return []*Definition{
		{
			ID:          "read_file",
			Name:        "Read file",
			Description: "Read a UTF-8 text file from the workspace. Returns the file contents.",
			Parameters: map[string]ParamSpec{
				"filename": {Type: TypeString, Description: "Workspace-relative path", Required: true},
			},
			Handler: func(_ context.Context, params map[string]any) (any, error) {
				path, err := sb.Resolve(params["filename"].(string))
				if err != nil {
					return nil, err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return nil, fmt.Errorf("read %s: %w", params["filename"], err)
				}
				return string(data), nil
			},
		},
		{
			ID:          "write_file",
			Name:        "Write file",
			Description: "Write a UTF-8 text file into the workspace, creating parent directories.",
			Parameters: map[string]ParamSpec{
				"filename": {Type: TypeString, Description: "Workspace-relative path", Required: true},
				"content":  {Type: TypeString, Description: "File contents", Required: true},
			},
			Handler: func(_ context.Context, params map[string]any) (any, error) {
				path, err := sb.Resolve(params["filename"].(string))
				if err != nil {
					return nil, err
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return nil, fmt.Errorf("create parent dir: %w", err)
				}
				content := params["content"].(string)
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					return nil, fmt.Errorf("write %s: %w", params["filename"], err)
				}
				return map[string]any{"written": len(content)}, nil
			},
		},
		{
			ID:          "list_files",
			Name:        "List files",
			Description: "List entries of a workspace directory.",
			Parameters: map[string]ParamSpec{
				"path": {Type: TypeString, Description: "Workspace-relative directory, defaults to the root"},
			},
			Handler: func(_ context.Context, params map[string]any) (any, error) {
				rel := "."
				if p, ok := params["path"].(string); ok && p != "" {
					rel = p
				}
				path, err := sb.Resolve(rel)
				if err != nil {
					return nil, err
				}
				entries, err := os.ReadDir(path)
				if err != nil {
					return nil, fmt.Errorf("list %s: %w", rel, err)
				}
				names := make([]string, 0, len(entries))
				for _, e := range entries {
					name := e.Name()
					if e.IsDir() {
						name += "/"
					}
					names = append(names, name)
				}
				return names, nil
			},
		},
	}
}

// TimeTool returns a side-effect-free built-in reporting the current UTC
// time. Mostly useful as a protocol smoke test for newly configured agents.
func TimeTool() *Definition {
	return &Definition{
		ID:          "current_time",
		Name:        "Current time",
		Description: "Report the current UTC time in RFC 3339 format.",
		Parameters:  map[string]ParamSpec{},
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return time.Now().UTC().Format(time.RFC3339), nil
		},
	}
}
