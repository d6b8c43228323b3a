package tasks

// DefineTasks registers the given task definitions on r
func DefineTasks(r *Registry, defs ...TaskDefinition) {
	for _, def := range defs {
		r.Register(def.TaskID(), def.HandleExecution)
	}
}
