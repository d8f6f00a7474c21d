package engine

import (
	"fmt"
	"sync"

	"github.com/shaiso/Maestro/internal/domain"
)

// Store — синхронизированное хранилище результатов завершённых шагов.
//
// Единственный разделяемый мутабельный ресурс выполнения. Записи
// append-once: результат шага, однажды записанный, не перезаписывается.
// Чтения возвращают только результаты завершённых зависимостей, поэтому
// зависимый шаг никогда не видит частичный или будущий результат.
//
// Store живёт ровно одно выполнение плана и умирает вместе с ним.
type Store struct {
	mu      sync.RWMutex
	results map[string]string
}

// NewStore создаёт пустое хранилище результатов.
func NewStore() *Store {
	return &Store{
		results: make(map[string]string),
	}
}

// Put записывает результат завершённого шага.
// Повторная запись для того же ID возвращает ErrResultExists.
func (s *Store) Put(stepID, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[stepID]; exists {
		return fmt.Errorf("%w: %s", ErrResultExists, stepID)
	}

	s.results[stepID] = result
	return nil
}

// Get возвращает результат шага и признак его наличия.
func (s *Store) Get(stepID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[stepID]
	return result, ok
}

// Len возвращает количество записанных результатов.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.results)
}

// SnapshotFor собирает read-only срез контекста для шага: ровно
// результаты его объявленных зависимостей, без посторонних записей.
//
// Зависимости без записанного результата (ещё не завершённые)
// в срез не попадают — вызывающий диспетчеризует шаг только после
// завершения всех его зависимостей.
func (s *Store) SnapshotFor(step *domain.Step) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]string, len(step.Need))
	for _, dep := range step.Need {
		if result, ok := s.results[dep]; ok {
			snapshot[dep] = result
		}
	}
	return snapshot
}
