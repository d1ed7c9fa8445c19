package executor

// FailureMessages lists the worker failure messages produced by the
// simulated executor and used for generated sample data.
var FailureMessages = []string{
	"Device is busy",
	"Network timeout",
	"File not found",
	"Access denied",
	"Disk space low",
	"Invalid input format",
	"Operation timed out",
	"System error occurred",
	"Permission denied",
	"Unknown error",
	"Resource unavailable",
	"Connection refused",
	"File read error",
	"Out of memory",
	"Service unavailable",
}
