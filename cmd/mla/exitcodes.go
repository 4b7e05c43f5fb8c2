package main

// Exit codes shared across commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no repository, invalid paths)
	ExitDataError   = 3 // Data error (malformed input, failed rebuild)
	ExitValidation  = 4 // Validation found error-severity problems
)
