package auth

// Service gates which chats may drive the bot. An empty allowlist admits
// everyone, which is the usual single-user deployment.
type Service struct {
	allowed map[int64]bool
}

func New(allowedChats []int64) *Service {
	allowed := make(map[int64]bool, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = true
	}
	return &Service{allowed: allowed}
}

func (s *Service) IsAllowed(chatID int64) bool {
	if len(s.allowed) == 0 {
		return true
	}
	return s.allowed[chatID]
}
