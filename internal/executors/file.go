package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileExecutor — исполнитель файловых операций в пределах workspace.
//
// Инструкция шага — JSON-команда:
//
//	{"command": "read|write|list|delete|mkdir", "path": "...", "content": "..."}
//
// Все пути разрешаются относительно корня workspace; выход за его
// пределы отклоняется.
type FileExecutor struct {
	root string
}

// NewFileExecutor создаёт исполнителя с указанным корнем workspace.
func NewFileExecutor(root string) *FileExecutor {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	return &FileExecutor{root: absRoot}
}

// fileCommand — разобранная инструкция файловой операции.
type fileCommand struct {
	Command string `json:"command"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// Execute выполняет файловую операцию.
func (e *FileExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	var cmd fileCommand
	if err := json.Unmarshal([]byte(task), &cmd); err != nil {
		return "", fmt.Errorf("invalid file instruction: %w", err)
	}

	target, err := e.resolve(cmd.Path)
	if err != nil {
		return "", err
	}

	switch cmd.Command {
	case "read":
		data, err := os.ReadFile(target)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil

	case "write":
		content := cmd.Content
		// Ссылки вида {{step_id}} подставляются из среза контекста
		for id, result := range execCtx {
			content = strings.ReplaceAll(content, "{{"+id+"}}", result)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create parent dir: %w", err)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write file: %w", err)
		}
		return fmt.Sprintf("wrote %d bytes to %s", len(content), cmd.Path), nil

	case "list":
		entries, err := os.ReadDir(target)
		if err != nil {
			return "", fmt.Errorf("list directory: %w", err)
		}
		var b strings.Builder
		for _, entry := range entries {
			kind := "file"
			if entry.IsDir() {
				kind = "dir"
			}
			fmt.Fprintf(&b, "[%s] %s\n", kind, entry.Name())
		}
		if b.Len() == 0 {
			return "directory is empty", nil
		}
		return b.String(), nil

	case "delete":
		if err := os.Remove(target); err != nil {
			return "", fmt.Errorf("delete: %w", err)
		}
		return fmt.Sprintf("deleted %s", cmd.Path), nil

	case "mkdir":
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", fmt.Errorf("mkdir: %w", err)
		}
		return fmt.Sprintf("created directory %s", cmd.Path), nil

	default:
		return "", fmt.Errorf("unknown file command: %q", cmd.Command)
	}
}

// resolve разрешает путь внутри workspace и отклоняет выход за его пределы.
func (e *FileExecutor) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file instruction has empty path")
	}

	target := filepath.Join(e.root, path)

	rel, err := filepath.Rel(e.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}

	return target, nil
}
