package audio

// NewCapturer returns a Capturer for the current platform. No platform
// backend is wired up (see design notes on the audio side channel being
// count-and-log only); every platform gets the same stub until one is.
func NewCapturer() Capturer {
	return unsupportedCapturer{}
}

type unsupportedCapturer struct{}

func (unsupportedCapturer) Start(func([]byte)) error { return ErrNotSupported }
func (unsupportedCapturer) Stop()                    {}
