package services

import "strings"

// Ключи кэша запросов. Инвалидация по префиксу опирается на завершающие разделители.
const (
	keyContestPrefix      = "contest:"
	keyContestsPrefix     = "contests:"
	keyContestsAll        = "contests:all"
	keyContestsConfirmed  = "contests:confirmed"
	keyContestsPopular    = "contests:popular"
	keyPaymentPrefix      = "payment-status:"
	keySubmissionsPrefix  = "submissions:"
	keyParticipationsPref = "participations:"
	keyUsersPrefix        = "users:"
	keyUsersAll           = "users:all"
	keyUserPrefix         = "users:one:"
)

func keyContest(id string) string { return keyContestPrefix + id }

func keyContestsByCreator(email string) string { return "contests:creator:" + normalizeEmail(email) }

func keyContestsWonBy(email string) string { return "contests:won:" + normalizeEmail(email) }

func keyPayment(contestID, email string) string {
	return keyPaymentPrefix + contestID + ":" + normalizeEmail(email)
}

func keySubmissions(contestID string) string { return keySubmissionsPrefix + contestID }

func keyParticipations(email string) string { return keyParticipationsPref + normalizeEmail(email) }

func keyUser(email string) string { return keyUserPrefix + normalizeEmail(email) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
