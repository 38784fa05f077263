package interfaces

// Sink is the append-only run log and artifact store
type Sink interface {
	// Begin truncates the log and writes the run header
	Begin(header string) error

	// Info appends a timestamped progress line
	Info(line string)

	// Error appends a timestamped error line
	Error(line string)

	// SaveArtifact appends a delimited, headered block and mirrors it to the console
	SaveArtifact(header, content string) error

	// Path returns where the log is written
	Path() string

	Close() error
}
