package types

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry resolves Go types and type handlers by name.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// goTypes maps type names to Go types: "java.lang.Integer" → int64
	goTypes map[string]reflect.Type

	// factories maps handler names to their constructors
	factories map[string]HandlerFactory

	// byGoType selects the handler used when an argument declares none
	byGoType map[reflect.Type]Handler

	// cache holds constructed handlers keyed by (handler name, Go type)
	cache sync.Map
}

type handlerKey struct {
	name   string
	goType reflect.Type
}

var (
	typeString  = reflect.TypeOf("")
	typeInt64   = reflect.TypeOf(int64(0))
	typeFloat64 = reflect.TypeOf(float64(0))
	typeBool    = reflect.TypeOf(false)
	typeBytes   = reflect.TypeOf([]byte(nil))
	typeTime    = reflect.TypeOf(time.Time{})
	typeUUID    = reflect.TypeOf(uuid.UUID{})
	typeAny     = reflect.TypeOf((*any)(nil)).Elem()
	typeMap     = reflect.TypeOf(map[string]any(nil))
	typeSlice   = reflect.TypeOf([]any(nil))
)

// NewRegistry creates a registry with the built-in types and handlers.
func NewRegistry() *Registry {
	r := &Registry{
		goTypes:   make(map[string]reflect.Type),
		factories: make(map[string]HandlerFactory),
		byGoType:  make(map[reflect.Type]Handler),
	}

	r.registerGoTypes(typeString, "string", "String", "java.lang.String", "char", "java.lang.Character")
	r.registerGoTypes(typeInt64, "int", "int32", "int64", "long", "short", "byte",
		"Integer", "java.lang.Integer", "Long", "java.lang.Long", "Short", "java.lang.Short",
		"java.lang.Byte", "java.math.BigInteger")
	r.registerGoTypes(typeFloat64, "float", "float32", "float64", "double",
		"Float", "java.lang.Float", "Double", "java.lang.Double", "java.math.BigDecimal")
	r.registerGoTypes(typeBool, "bool", "boolean", "Boolean", "java.lang.Boolean")
	r.registerGoTypes(typeBytes, "[]byte", "bytes", "byte[]", "java.sql.Blob")
	r.registerGoTypes(typeTime, "time", "time.Time", "java.util.Date", "java.sql.Date",
		"java.sql.Time", "java.sql.Timestamp", "java.time.LocalDate", "java.time.LocalDateTime",
		"java.time.OffsetDateTime", "java.time.Instant")
	r.registerGoTypes(typeUUID, "uuid", "uuid.UUID", "java.util.UUID")
	r.registerGoTypes(typeAny, "any", "interface{}", "Object", "java.lang.Object")
	r.registerGoTypes(typeMap, "map", "java.util.Map", "java.util.HashMap", "java.util.LinkedHashMap")
	r.registerGoTypes(typeSlice, "list", "java.util.List", "java.util.ArrayList", "java.util.Collection")

	r.registerHandler(DefaultHandler, "default", "UnknownTypeHandler", "ObjectTypeHandler")
	r.registerHandler(StringHandler, "string", "StringTypeHandler", "NStringTypeHandler", "ClobTypeHandler")
	r.registerHandler(IntegerHandler, "integer", "IntegerTypeHandler", "LongTypeHandler",
		"ShortTypeHandler", "ByteTypeHandler", "BigIntegerTypeHandler")
	r.registerHandler(FloatHandler, "float", "FloatTypeHandler", "DoubleTypeHandler", "BigDecimalTypeHandler")
	r.registerHandler(BooleanHandler, "boolean", "BooleanTypeHandler")
	r.registerHandler(TimeHandler, "time", "DateTypeHandler", "SqlTimestampTypeHandler",
		"LocalDateTimeTypeHandler", "LocalDateTypeHandler", "InstantTypeHandler")
	r.registerHandler(BytesHandler, "bytes", "BytesTypeHandler", "BlobBytesTypeHandler")
	r.registerHandler(UUIDHandler, "uuid", "UUIDTypeHandler")
	r.registerHandler(JSONHandler, "json", "JsonTypeHandler", "MapTypeHandler")

	r.byGoType[typeString] = StringHandler
	r.byGoType[typeInt64] = IntegerHandler
	r.byGoType[typeFloat64] = FloatHandler
	r.byGoType[typeBool] = BooleanHandler
	r.byGoType[typeBytes] = BytesHandler
	r.byGoType[typeTime] = TimeHandler
	r.byGoType[typeUUID] = UUIDHandler
	r.byGoType[typeMap] = JSONHandler

	return r
}

func (r *Registry) registerGoTypes(t reflect.Type, names ...string) {
	for _, name := range names {
		r.goTypes[name] = t
	}
}

func (r *Registry) registerHandler(h Handler, names ...string) {
	for _, name := range names {
		r.factories[name] = staticFactory(h)
	}
}

// RegisterGoType makes t resolvable under name.
func (r *Registry) RegisterGoType(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goTypes[name] = t
}

// RegisterHandler registers a handler factory under name.
// Cached handlers previously built for that name are discarded.
func (r *Registry) RegisterHandler(name string, factory HandlerFactory) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()

	r.cache.Range(func(k, _ any) bool {
		if k.(handlerKey).name == name {
			r.cache.Delete(k)
		}
		return true
	})
}

// SetDefaultHandler sets the handler used for values of Go type t when
// an argument declares no handler.
func (r *Registry) SetDefaultHandler(t reflect.Type, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byGoType[t] = h
}

// LookupGoType resolves a Go type by name. Fully qualified names are
// tried as given first, then by their last dotted segment.
func (r *Registry) LookupGoType(name string) (reflect.Type, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.goTypes[name]; ok {
		return t, nil
	}
	if t, ok := r.goTypes[shortName(name)]; ok {
		return t, nil
	}
	return nil, &ClassResolutionError{Kind: "type", Name: name}
}

// CreateHandler returns the handler registered under name for goType,
// constructing it on first use and caching it afterwards.
func (r *Registry) CreateHandler(name string, goType reflect.Type) (Handler, error) {
	name = strings.TrimSpace(name)
	key := handlerKey{name: name, goType: goType}
	if h, ok := r.cache.Load(key); ok {
		return h.(Handler), nil
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	if !ok {
		factory, ok = r.factories[shortName(name)]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, &ClassResolutionError{Kind: "handler", Name: name}
	}

	h, err := factory(goType)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(key, h)
	return actual.(Handler), nil
}

// HandlerFor returns the default handler for values of Go type t.
// Unregistered or nil types get DefaultHandler.
func (r *Registry) HandlerFor(t reflect.Type) Handler {
	if t == nil {
		return DefaultHandler
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.byGoType[t]; ok {
		return h
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerHandler
	case reflect.Float32, reflect.Float64:
		return FloatHandler
	case reflect.String:
		return StringHandler
	case reflect.Bool:
		return BooleanHandler
	}
	return DefaultHandler
}

// HandlerNames returns the registered handler names (sorted).
func (r *Registry) HandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeNames returns the registered Go type names (sorted).
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.goTypes))
	for name := range r.goTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// shortName strips a package qualifier: "net.x.StringTypeHandler" → "StringTypeHandler".
func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}
