package services

// ContestNotifier получает изменения конкурсов, чтобы открытые страницы обновились.
type ContestNotifier interface {
	ContestUpdated(contestID string, reason string)
}

type noopNotifier struct{}

func (noopNotifier) ContestUpdated(string, string) {}

func notifierOrNoop(n ContestNotifier) ContestNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
