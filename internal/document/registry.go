package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Registry maps formats to adapter factories and file extensions to
// formats.
type Registry struct {
	mu         sync.RWMutex
	factories  map[Format]AdapterFactory
	extensions map[string]Format
}

var globalRegistry = &Registry{
	factories:  make(map[Format]AdapterFactory),
	extensions: make(map[string]Format),
}

// Register registers an adapter factory for a format.
func Register(format Format, factory AdapterFactory) error {
	return globalRegistry.Register(format, factory)
}

// RegisterExtension maps a file extension to a format.
func RegisterExtension(ext string, format Format) {
	globalRegistry.RegisterExtension(ext, format)
}

// GetAdapter builds an adapter for a format.
func GetAdapter(format Format, opts Options) (Adapter, error) {
	return globalRegistry.GetAdapter(format, opts)
}

// GetAdapterByExtension builds an adapter for a filename's extension.
func GetAdapterByExtension(filename string, opts Options) (Adapter, error) {
	return globalRegistry.GetAdapterByExtension(filename, opts)
}

// SupportedExtension reports whether the filename's extension maps to a
// registered format.
func SupportedExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	_, ok := globalRegistry.extensions[ext]
	return ok
}

func (r *Registry) Register(format Format, factory AdapterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[format]; exists {
		return fmt.Errorf("format %s already registered", format)
	}
	r.factories[format] = factory
	return nil
}

func (r *Registry) RegisterExtension(ext string, format Format) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.extensions[ext] = format
}

func (r *Registry) GetAdapter(format Format, opts Options) (Adapter, error) {
	r.mu.RLock()
	factory, exists := r.factories[format]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no adapter registered for format: %s", format)
	}
	return factory(opts)
}

func (r *Registry) GetAdapterByExtension(filename string, opts Options) (Adapter, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	r.mu.RLock()
	format, exists := r.extensions[ext]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no adapter registered for extension: %s", ext)
	}
	return r.GetAdapter(format, opts)
}

func init() {
	Register(FormatDOCX, func(opts Options) (Adapter, error) {
		return NewDocxAdapter(opts), nil
	})
	Register(FormatPPTX, func(opts Options) (Adapter, error) {
		return NewPptxAdapter(opts), nil
	})
	Register(FormatPDF, func(opts Options) (Adapter, error) {
		return NewPdfAdapter(opts), nil
	})

	RegisterExtension(".docx", FormatDOCX)
	RegisterExtension(".pptx", FormatPPTX)
	RegisterExtension(".pdf", FormatPDF)
}
