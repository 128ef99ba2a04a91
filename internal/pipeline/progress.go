package pipeline

// Progress is an advisory status update. Percent is overall completion in
// [0, 100]; a negative value means unknown.
type Progress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Overall progress is split across stages by these weights.
const (
	fetchStart     = 0.0
	segmentStart   = 20.0
	recognizeStart = 30.0
	assembleStart  = 98.0
)

type progressReporter func(Progress)

func (r progressReporter) report(stage string, percent float64, message string) {
	if r == nil {
		return
	}
	percent = min(max(percent, 0), 100)
	r(Progress{Stage: stage, Percent: percent, Message: message})
}

// within maps done/total onto the [start, end) band of overall progress.
func within(start, end float64, done, total int) float64 {
	if total <= 0 {
		return start
	}
	return start + (end-start)*float64(done)/float64(total)
}
