package captcha

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() (*Store, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(zap.NewNop())
	s.now = func() time.Time { return now }
	return s, &now
}

// solve answers a generated question the way a human would.
func solve(t *testing.T, question string) string {
	t.Helper()

	var a, b int
	if _, err := fmt.Sscanf(question, "What is %d + %d?", &a, &b); err == nil {
		return strconv.Itoa(a + b)
	}
	if _, err := fmt.Sscanf(question, "What is %d - %d?", &a, &b); err == nil {
		return strconv.Itoa(a - b)
	}
	if _, err := fmt.Sscanf(question, "What is %d x %d?", &a, &b); err == nil {
		return strconv.Itoa(a * b)
	}
	for _, pair := range triviaPairs {
		if pair.question == question {
			return pair.answer
		}
	}
	t.Fatalf("unsolvable question: %q", question)
	return ""
}

func TestGenerateAndVerify(t *testing.T) {
	s, _ := newTestStore()

	id, question := s.Generate()
	require.NotEmpty(t, id)
	require.NotEmpty(t, question)

	err := s.Verify(id, solve(t, question))
	assert.NoError(t, err)
}

func TestChallengeConsumedOnSuccess(t *testing.T) {
	s, _ := newTestStore()

	id, question := s.Generate()
	answer := solve(t, question)
	require.NoError(t, s.Verify(id, answer))

	// Second verification of the same id fails: the challenge was consumed.
	err := s.Verify(id, answer)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestAnswerNormalization(t *testing.T) {
	s, _ := newTestStore()
	s.challenges["ch"] = &challenge{answer: "blue", expiresAt: s.now().Add(time.Minute)}

	assert.NoError(t, s.Verify("ch", "  BLUE  "))
}

func TestAttemptExhaustion(t *testing.T) {
	s, _ := newTestStore()
	s.challenges["ch"] = &challenge{answer: "42", expiresAt: s.now().Add(time.Minute)}

	var wrong *WrongAnswerError
	err := s.Verify("ch", "1")
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, 2, wrong.Remaining)

	err = s.Verify("ch", "2")
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, 1, wrong.Remaining)

	err = s.Verify("ch", "3")
	assert.ErrorIs(t, err, ErrAttemptsExceeded)

	// The exhausted challenge is gone; even the right answer fails now.
	err = s.Verify("ch", "42")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestCorrectAnswerAfterWrongAttempts(t *testing.T) {
	s, _ := newTestStore()
	s.challenges["ch"] = &challenge{answer: "42", expiresAt: s.now().Add(time.Minute)}

	require.Error(t, s.Verify("ch", "wrong"))
	assert.NoError(t, s.Verify("ch", "42"))
}

func TestExpiredChallenge(t *testing.T) {
	s, now := newTestStore()

	id, question := s.Generate()
	answer := solve(t, question)

	*now = now.Add(5*time.Minute + time.Second)
	err := s.Verify(id, answer)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	// Expiry removed it from the store.
	assert.Equal(t, 0, s.Active())
}

func TestVerifyUnknownChallenge(t *testing.T) {
	s, _ := newTestStore()
	assert.ErrorIs(t, s.Verify("nope", "anything"), ErrChallengeNotFound)
}

func TestGenerateCollectsExpired(t *testing.T) {
	s, now := newTestStore()

	for i := 0; i < 5; i++ {
		s.Generate()
	}
	require.Equal(t, 5, s.Active())

	*now = now.Add(10 * time.Minute)
	s.Generate()
	assert.Equal(t, 1, s.Active())
}

func TestArithmeticNeverNegative(t *testing.T) {
	s, _ := newTestStore()

	for i := 0; i < 200; i++ {
		question, answer := s.arithmetic()
		n, err := strconv.Atoi(answer)
		require.NoError(t, err, "question %q", question)
		assert.GreaterOrEqual(t, n, 0, "question %q", question)
		assert.True(t, strings.HasPrefix(question, "What is "))
	}
}
