package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the task endpoints on r. The caller decides the
// prefix, normally /api.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Put("/", h.UpdateTaskFromBody)
		r.Post("/seed", h.SeedTasks)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Put("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Post("/msg", h.AddMsg)
			r.Delete("/msg/{msgId}", h.RemoveMsg)
			r.Post("/perform", h.PerformTask)
			r.Post("/enqueue", h.EnqueuePerform)
		})
	})
}
