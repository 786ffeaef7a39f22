package quizcoach

import "log"

var verboseMode bool

// SetVerbose toggles verbose pipeline logging for the whole package.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// VerboseLog logs recovery, validation and dedup details when verbose mode
// is on. Kept off by default: the pipeline handles noisy inputs routinely
// and dropped candidates are not errors.
func VerboseLog(format string, v ...interface{}) {
	if verboseMode {
		log.Printf(format, v...)
	}
}
