package captcha

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTTL         = 5 * time.Minute
	defaultMaxAttempts = 3
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrAttemptsExceeded  = errors.New("max attempts exceeded")
)

// WrongAnswerError reports a failed attempt that left the challenge active.
type WrongAnswerError struct {
	Remaining int
}

func (e *WrongAnswerError) Error() string {
	return fmt.Sprintf("wrong answer, %d attempts remaining", e.Remaining)
}

type triviaPair struct {
	question string
	answer   string
}

var triviaPairs = []triviaPair{
	{"What color is the sky on a clear day?", "blue"},
	{"How many days are in a week?", "7"},
	{"What is the opposite of hot?", "cold"},
	{"How many legs does a spider have?", "8"},
	{"What do bees make?", "honey"},
}

type challenge struct {
	question  string
	answer    string // stored normalized: lowercase, trimmed
	expiresAt time.Time
	attempts  int
}

// Store owns all challenge state. Challenges never leave the store except
// as an opaque id plus question text.
type Store struct {
	mu          sync.Mutex
	challenges  map[string]*challenge
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	rng         *rand.Rand
	logger      *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return NewStoreWith(defaultTTL, defaultMaxAttempts, logger)
}

func NewStoreWith(ttl time.Duration, maxAttempts int, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Store{
		challenges:  make(map[string]*challenge),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}
}

// Generate creates a new challenge and returns its id and question. The
// expected answer never leaves the store. Expired leftovers from abandoned
// challenges are swept here to bound growth.
func (s *Store) Generate() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collectExpired()

	var question, answer string
	if s.rng.Intn(100) < 70 {
		question, answer = s.arithmetic()
	} else {
		pair := triviaPairs[s.rng.Intn(len(triviaPairs))]
		question, answer = pair.question, pair.answer
	}

	id := uuid.New().String()
	s.challenges[id] = &challenge{
		question:  question,
		answer:    normalize(answer),
		expiresAt: s.now().Add(s.ttl),
	}

	s.logger.Debug("Captcha challenge generated", zap.String("challenge_id", id))
	return id, question
}

// Verify consumes an attempt. A correct answer removes the challenge and
// returns nil; a wrong answer under the attempt cap returns
// *WrongAnswerError; expiry and exhaustion remove the challenge.
func (s *Store) Verify(id, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id]
	if !ok {
		return ErrChallengeNotFound
	}

	if s.now().After(ch.expiresAt) {
		delete(s.challenges, id)
		return ErrChallengeExpired
	}

	ch.attempts++
	if normalize(answer) == ch.answer {
		delete(s.challenges, id)
		return nil
	}

	if ch.attempts >= s.maxAttempts {
		delete(s.challenges, id)
		return ErrAttemptsExceeded
	}
	return &WrongAnswerError{Remaining: s.maxAttempts - ch.attempts}
}

// Active returns the number of live challenges.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// collectExpired must be called with the lock held.
func (s *Store) collectExpired() {
	now := s.now()
	for id, ch := range s.challenges {
		if now.After(ch.expiresAt) {
			delete(s.challenges, id)
		}
	}
}

// arithmetic builds a small mental-math question. Operand ranges keep
// results small and subtraction always places the larger operand first, so
// answers are never negative.
func (s *Store) arithmetic() (string, string) {
	switch s.rng.Intn(3) {
	case 0:
		a := s.rng.Intn(20) + 1
		b := s.rng.Intn(20) + 1
		return fmt.Sprintf("What is %d + %d?", a, b), strconv.Itoa(a + b)
	case 1:
		a := s.rng.Intn(30) + 11
		b := s.rng.Intn(10) + 1
		return fmt.Sprintf("What is %d - %d?", a, b), strconv.Itoa(a - b)
	default:
		a := s.rng.Intn(8) + 2
		b := s.rng.Intn(8) + 2
		return fmt.Sprintf("What is %d x %d?", a, b), strconv.Itoa(a * b)
	}
}

func normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
