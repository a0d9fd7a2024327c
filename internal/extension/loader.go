package extension

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/extraterm/extman/internal/manifest"
)

// Instance is one loaded extension module: a private goja runtime holding
// the module's exports. The module must export an activate function and may
// export a deactivate function.
type Instance struct {
	vm         *goja.Runtime
	exports    *goja.Object
	activate   goja.Callable
	deactivate goja.Callable // nil when the module declares no deactivate hook
}

// loadInstance creates a fresh runtime for the extension and requires its
// main module. Any failure (missing file, syntax error, throw during module
// evaluation, missing activate export) aborts the load.
func loadInstance(meta *manifest.ExtensionMetadata) (*Instance, error) {
	vm := goja.New()

	registry := require.NewRegistry(require.WithGlobalFolders(meta.Path))
	req := registry.Enable(vm)
	console.Enable(vm)

	mainPath := filepath.Join(meta.Path, meta.Main)
	exportsVal, err := req.Require(mainPath)
	if err != nil {
		return nil, fmt.Errorf("loading module %q: %w", mainPath, err)
	}

	exports := exportsVal.ToObject(vm)
	if exports == nil {
		return nil, fmt.Errorf("module %q did not export an object", mainPath)
	}

	activate, ok := goja.AssertFunction(exports.Get("activate"))
	if !ok {
		return nil, fmt.Errorf("module %q does not export an activate function", mainPath)
	}

	instance := &Instance{
		vm:       vm,
		exports:  exports,
		activate: activate,
	}
	if deactivate, ok := goja.AssertFunction(exports.Get("deactivate")); ok {
		instance.deactivate = deactivate
	}
	return instance, nil
}

// Activate invokes the module's activate entry point with the extension's
// capability object and returns the module's opaque public API value.
// A throw or panic during activation is returned as an error; the runtime
// remains isolated to this extension either way.
func (in *Instance) Activate(ctx *Context) (api any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activate panicked: %v", r)
		}
	}()

	res, err := in.activate(goja.Undefined(), in.contextValue(ctx))
	if err != nil {
		return nil, fmt.Errorf("activate threw: %w", err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, nil
	}
	// The public API is an opaque handle; the core never inspects it.
	return res.Export(), nil
}

// Deactivate invokes the module's optional deactivate hook. isRealShutdown
// distinguishes a genuine shutdown from a reload-style stop.
func (in *Instance) Deactivate(isRealShutdown bool) (err error) {
	if in.deactivate == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deactivate panicked: %v", r)
		}
	}()

	if _, err := in.deactivate(goja.Undefined(), in.vm.ToValue(isRealShutdown)); err != nil {
		return fmt.Errorf("deactivate threw: %w", err)
	}
	return nil
}

// contextValue builds the JavaScript view of the capability object. The
// commands API mirrors the Go Context methods; handlers and customizers
// supplied from JavaScript are wrapped so panics and throws surface as
// ordinary Go errors.
func (in *Instance) contextValue(ctx *Context) goja.Value {
	logger := slog.With("extension", ctx.ExtensionName())

	return in.vm.ToValue(map[string]any{
		"extensionName": ctx.ExtensionName(),
		"extensionPath": ctx.ExtensionPath(),
		"commands": map[string]any{
			"registerCommand": func(name string, fn goja.Callable) {
				ctx.RegisterCommand(name, in.wrapHandler(fn))
			},
			"setCommandCustomizer": func(name string, fn goja.Callable) {
				ctx.SetCommandCustomizer(name, in.wrapCustomizer(name, fn))
			},
		},
		"logger": map[string]any{
			"info":  func(msg string) { logger.Info("[Extension] " + msg) },
			"warn":  func(msg string) { logger.Warn("[Extension] " + msg) },
			"error": func(msg string) { logger.Error("[Extension] " + msg) },
		},
	})
}

func (in *Instance) wrapHandler(fn goja.Callable) CommandHandler {
	return func(args map[string]any) (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		res, err := fn(goja.Undefined(), in.vm.ToValue(args))
		if err != nil {
			return nil, err
		}
		if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
			return nil, nil
		}
		return res.Export(), nil
	}
}

func (in *Instance) wrapCustomizer(name string, fn goja.Callable) CommandCustomizer {
	return func() CommandCustomization {
		res, err := fn(goja.Undefined())
		if err != nil {
			slog.Warn("[ExtensionManager] command customizer threw", "command", name, "error", err)
			return CommandCustomization{}
		}
		obj, ok := res.Export().(map[string]any)
		if !ok {
			return CommandCustomization{}
		}
		var custom CommandCustomization
		if title, ok := obj["title"].(string); ok {
			custom.Title = title
		}
		if icon, ok := obj["icon"].(string); ok {
			custom.Icon = icon
		}
		return custom
	}
}
