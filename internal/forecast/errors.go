package forecast

import "errors"

var (
	// ErrDataUnavailable means the upstream source returned no usable prices.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInsufficientData means the history is too short to form one window.
	ErrInsufficientData = errors.New("insufficient history for window size")
	// ErrUnknownArchitecture means the requested model kind is not supported.
	ErrUnknownArchitecture = errors.New("unknown model architecture")
	// ErrModelBuild means assembling or compiling the network failed.
	ErrModelBuild = errors.New("model build failed")
	// ErrTraining means the fit loop failed.
	ErrTraining = errors.New("training failed")
	// ErrForecast means the autoregressive rollout failed.
	ErrForecast = errors.New("forecast failed")
)
