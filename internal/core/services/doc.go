// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The question path is AnswerService (guard, retrieve, synthesise, cite)
// wrapped by QueryService (timing, performance log, follow-up prompts).
// IndexService builds the per-company indexes RetrievalService reads.
package services
