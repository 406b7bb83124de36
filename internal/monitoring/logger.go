// Package monitoring is the diagnostic log of the TPM tools: loaded row
// counts, fit metrics and conditioning warnings. Schema migrations log here
// too. Console reports are written to stdout directly, so muting this log
// leaves them intact.
package monitoring

import "log"

// Logf writes to the standard logger (stderr) unless replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. nil mutes diagnostics.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf flags a result that is still usable but suspect, such as an
// ill-conditioned fit.
func Warnf(format string, v ...interface{}) {
	Logf("WARNING: "+format, v...)
}
