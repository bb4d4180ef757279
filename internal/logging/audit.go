package logging

import "go.uber.org/zap"

// Audit events are the fixed-shape records downstream tooling greps for.
// They go through the category loggers like everything else but keep a
// stable event name and field set.

// DenialRecord logs a structured record for a snippet rejected by the policy
// gate. One record per verdict, carrying every violation.
func DenialRecord(sessionID, turnID string, violations []string) {
	Get(CategoryPolicy).Warn("policy_denial",
		zap.String("session", sessionID),
		zap.String("turn", turnID),
		zap.Strings("violations", violations),
	)
}

// ExecutionRecord logs the outcome of one sandbox run.
func ExecutionRecord(sessionID, turnID string, ok bool, durationMS int64, errMsg string) {
	logger := Get(CategorySandbox)
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("turn", turnID),
		zap.Bool("success", ok),
		zap.Int64("dur_ms", durationMS),
	}
	if errMsg != "" {
		fields = append(fields, zap.String("error", errMsg))
	}
	if ok {
		logger.Info("sandbox_execution", fields...)
		return
	}
	logger.Warn("sandbox_execution", fields...)
}

// LLMRecord logs one model call, including retries.
func LLMRecord(sessionID string, attempt int, ok bool, durationMS int64, errMsg string) {
	logger := Get(CategoryLLM)
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.Int("attempt", attempt),
		zap.Bool("success", ok),
		zap.Int64("dur_ms", durationMS),
	}
	if errMsg != "" {
		fields = append(fields, zap.String("error", errMsg))
	}
	if ok {
		logger.Info("llm_call", fields...)
		return
	}
	logger.Warn("llm_call", fields...)
}
