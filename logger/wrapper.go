package logger

// LevelWrapper promotes a Base (Level + Log) into a full Logger, adding the
// Debug/Info/Warn/Error convenience methods and With-style field binding.
type LevelWrapper struct {
	base   Base
	fields []any
}

func WrapLogger(l Base) Logger {
	return &LevelWrapper{base: l}
}

func (w *LevelWrapper) Level() LogLevel {
	return w.base.Level()
}

func (w *LevelWrapper) Log(level LogLevel, msg string, kv ...any) {
	if len(w.fields) == 0 {
		w.base.Log(level, msg, kv...)
		return
	}

	merged := make([]any, 0, len(w.fields)+len(kv))
	merged = append(merged, w.fields...)
	merged = append(merged, kv...)
	w.base.Log(level, msg, merged...)
}

func (w *LevelWrapper) With(kv ...any) Logger {
	fields := make([]any, 0, len(w.fields)+len(kv))
	fields = append(fields, w.fields...)
	fields = append(fields, kv...)
	return &LevelWrapper{base: w.base, fields: fields}
}

func (w *LevelWrapper) Debug(msg string, kv ...any) {
	w.Log(DebugLevel, msg, kv...)
}

func (w *LevelWrapper) Info(msg string, kv ...any) {
	w.Log(InfoLevel, msg, kv...)
}

func (w *LevelWrapper) Warn(msg string, kv ...any) {
	w.Log(WarnLevel, msg, kv...)
}

func (w *LevelWrapper) Error(msg string, kv ...any) {
	w.Log(ErrorLevel, msg, kv...)
}
