package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateAnswersKey returns the durable answer-record key for one candidate's
// attempt at one quiz. The quizAnswers_<quizID> suffix is the wire-compatible
// name the browser used for its per-device record; the candidate prefix scopes
// it now that all sessions share one store.
func (r *CacheKeyStruct) CandidateAnswersKey(regNo, quizID string) string {
	return fmt.Sprintf("candidate:%s:quizAnswers_%s", regNo, quizID)
}

var CacheKey = NewCacheKeyStruct()
