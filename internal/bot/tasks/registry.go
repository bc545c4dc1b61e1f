package tasks

// RegisterAllTasks returns the map of named task functions available to the
// scheduler. Names must match the keys used in the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	return map[string]ScheduledTaskFunc{
		"sql_maintenance":   NewSQLMaintenanceTask(deps),
		"archive_retention": NewArchiveRetentionTask(deps),
	}
}
