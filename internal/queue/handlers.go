package queue

import "github.com/hibiken/asynq"

// Registry maps task types onto their handlers for the worker binary.
type Registry struct {
	mux *asynq.ServeMux
}

func NewRegistry() *Registry {
	return &Registry{mux: asynq.NewServeMux()}
}

func (r *Registry) Register(taskType string, handler asynq.Handler) *Registry {
	r.mux.Handle(taskType, handler)
	return r
}

func (r *Registry) Mux() *asynq.ServeMux {
	return r.mux
}
