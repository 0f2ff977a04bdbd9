// Package workers ships the built-in capability handlers. They return
// expected domain failures as Success:false results; a Go error from Invoke
// means the handler itself broke.
package workers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"voxtask/internal/capability"
)

// locationAliases maps the spoken location names the planner emits to
// root-relative directories.
var locationAliases = map[string]string{
	"~/Desktop":   "Desktop",
	"~/Documents": "Documents",
	"~/Downloads": "Downloads",
	"~/Pictures":  "Pictures",
	"桌面":          "Desktop",
	"文档":          "Documents",
	"下载":          "Downloads",
	"图片":          "Pictures",
}

// FileHandler serves create/write/read/list operations confined to a root
// directory.
type FileHandler struct {
	root string
	log  *zap.Logger
}

// NewFileHandler creates the handler. root must exist.
func NewFileHandler(root string, log *zap.Logger) *FileHandler {
	return &FileHandler{root: root, log: log}
}

// FileRegistration describes the handler for the registry.
func FileRegistration(root string, log *zap.Logger) capability.Registration {
	return capability.Registration{
		Name:        "file",
		Description: "文件操作：创建、写入、读取、列出文件",
		Priority:    60,
		Handler:     NewFileHandler(root, log),
	}
}

// Invoke dispatches on the "operation" parameter.
func (h *FileHandler) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	op, _ := inv.Parameters["operation"].(string)
	if op == "" {
		return failure("未指定操作类型，请说明要对文件做什么"), nil
	}

	switch op {
	case "create":
		return h.create(inv)
	case "write":
		return h.write(inv)
	case "read":
		return h.read(inv)
	case "list":
		return h.list(inv)
	default:
		return failure(fmt.Sprintf("无效的操作类型'%s'", op)), nil
	}
}

func (h *FileHandler) create(inv capability.Invocation) (*capability.Result, error) {
	path, res := h.resolve(inv, true)
	if res != nil {
		return res, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure(fmt.Sprintf("创建目录失败：%v", err)), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return failure(fmt.Sprintf("文件已存在：%s", h.display(path))), nil
		}
		return failure(fmt.Sprintf("创建文件失败：%v", err)), nil
	}
	defer f.Close()

	if content, ok := inv.Parameters["content"].(string); ok && content != "" {
		if _, err := f.WriteString(content); err != nil {
			return failure(fmt.Sprintf("写入内容失败：%v", err)), nil
		}
	}
	h.log.Info("file created", zap.String("path", h.display(path)))
	return success(fmt.Sprintf("已创建文件 %s", h.display(path)), "file.create", inv.Parameters), nil
}

func (h *FileHandler) write(inv capability.Invocation) (*capability.Result, error) {
	path, res := h.resolve(inv, true)
	if res != nil {
		return res, nil
	}
	content, ok := inv.Parameters["content"].(string)
	if !ok {
		return failure("缺少要写入的内容，请提供内容"), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return failure(fmt.Sprintf("写入文件失败：%v", err)), nil
	}
	return success(fmt.Sprintf("已写入 %s", h.display(path)), "file.write", inv.Parameters), nil
}

func (h *FileHandler) read(inv capability.Invocation) (*capability.Result, error) {
	path, res := h.resolve(inv, true)
	if res != nil {
		return res, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return failure(fmt.Sprintf("文件不存在：%s", h.display(path))), nil
		}
		return failure(fmt.Sprintf("读取文件失败：%v", err)), nil
	}
	return success(string(data), "file.read", inv.Parameters), nil
}

func (h *FileHandler) list(inv capability.Invocation) (*capability.Result, error) {
	path, res := h.resolve(inv, false)
	if res != nil {
		return res, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return failure(fmt.Sprintf("目录不存在：%s", h.display(path))), nil
		}
		return failure(fmt.Sprintf("列出目录失败：%v", err)), nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return success(strings.Join(names, "\n"), "file.list", inv.Parameters), nil
}

// resolve maps the "path" parameter into the confined root. requirePath
// controls whether a missing parameter is a domain failure or defaults to
// the root itself.
func (h *FileHandler) resolve(inv capability.Invocation, requirePath bool) (string, *capability.Result) {
	raw, _ := inv.Parameters["path"].(string)
	if raw == "" {
		if requirePath {
			return "", failure("未指定文件路径，请提供路径")
		}
		return h.root, nil
	}

	for alias, dir := range locationAliases {
		if raw == alias {
			raw = dir
			break
		}
		if strings.HasPrefix(raw, alias+"/") {
			raw = filepath.Join(dir, strings.TrimPrefix(raw, alias+"/"))
			break
		}
	}

	joined := filepath.Join(h.root, raw)
	if rel, err := filepath.Rel(h.root, joined); err != nil || strings.HasPrefix(rel, "..") {
		return "", failure(fmt.Sprintf("无效的路径'%s'", raw))
	}
	return joined, nil
}

func (h *FileHandler) display(path string) string {
	if rel, err := filepath.Rel(h.root, path); err == nil {
		return rel
	}
	return path
}

func failure(msg string) *capability.Result {
	return &capability.Result{Success: false, Error: msg}
}

func success(output, tool string, args map[string]any) *capability.Result {
	return &capability.Result{
		Success:   true,
		Output:    output,
		ToolCalls: []capability.ToolCall{{Tool: tool, Args: args, Result: output}},
	}
}
