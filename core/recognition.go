package core

// Recognition is the outcome of a single speech recognition attempt.
// It is a closed set: Recognized, NoMatch or RecognitionFailed.
type Recognition interface {
	isRecognition()
}

// Recognized carries the text heard in the utterance.
type Recognized struct {
	Text string
}

// NoMatch means audio was captured but nothing intelligible was heard
// (silence, noise, initial silence timeout).
type NoMatch struct {
	Reason string
}

// RecognitionFailed wraps any other failure: device, network, auth, quota.
type RecognitionFailed struct {
	Err error
}

func (Recognized) isRecognition()        {}
func (NoMatch) isRecognition()           {}
func (RecognitionFailed) isRecognition() {}

func (r RecognitionFailed) Error() string {
	if r.Err == nil {
		return "recognition failed"
	}
	return r.Err.Error()
}

func (r RecognitionFailed) Unwrap() error {
	return r.Err
}
