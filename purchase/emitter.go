package purchase

import "context"

// Emitter delivers a named event to the scripting layer
type Emitter interface {
	Emit(ctx context.Context, name string, payload map[string]interface{}) error
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(ctx context.Context, name string, payload map[string]interface{}) error

func (f EmitterFunc) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	return f(ctx, name, payload)
}
