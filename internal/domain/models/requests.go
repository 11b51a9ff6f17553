package models

// ForecastRequest asks for a multi-step price forecast.
type ForecastRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	Model     string `json:"model" default:"LSTM" validate:"oneof=MLP GRU LSTM CNN-LSTM"`
	Interval  string `json:"interval" default:"1d" validate:"oneof=1h 1d 1wk 1mo"`
	Steps     int    `json:"steps" default:"30" validate:"min=1,max=100"`
	AutoTrain *bool  `json:"auto_train" default:"true"`
}

// Train reports whether a missing model should be trained on demand.
func (r *ForecastRequest) Train() bool {
	return r.AutoTrain == nil || *r.AutoTrain
}

// TrainRequest asks for an explicit (re)training run.
type TrainRequest struct {
	Symbol       string  `json:"symbol" validate:"required"`
	Model        string  `json:"model" default:"LSTM" validate:"oneof=MLP GRU LSTM CNN-LSTM"`
	Interval     string  `json:"interval" default:"1d" validate:"oneof=1h 1d 1wk 1mo"`
	Epochs       int     `json:"epochs" default:"8" validate:"min=1,max=500"`
	BatchSize    int     `json:"batch_size" default:"32" validate:"min=1,max=1024"`
	Neurons      int     `json:"neurons" default:"50" validate:"min=1,max=512"`
	Dropout      float64 `json:"dropout" default:"0.2" validate:"min=0,max=0.9"`
	LearningRate float64 `json:"learning_rate" default:"0.001" validate:"gt=0,max=1"`
}

// HistoryRequest asks for recent forecast audit rows.
type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"min=1,max=500"`
}
