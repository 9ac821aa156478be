// Package tasks implements estate task CRUD. Moving a task to done
// stamps completedAt and moving it away clears it, only on an actual
// status change.
package tasks
