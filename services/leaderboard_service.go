package services

import (
	"context"
	"sort"
	"strings"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
)

const LeaderboardPageSize = 10

type LeaderboardService interface {
	Leaderboard(ctx context.Context, search string, page int) (models.Page[models.LeaderboardEntry], error)
}

type leaderboardService struct {
	userRepo repositories.UserRepository
	cache    *query.Client
}

func NewLeaderboardService(userRepo repositories.UserRepository, cache *query.Client) LeaderboardService {
	return &leaderboardService{userRepo: userRepo, cache: cache}
}

// Rank keeps participants with at least one win and numbers them 1..n by descending
// win count. Ties keep the API order and still get distinct ranks.
func Rank(users []models.User) []models.LeaderboardEntry {
	winners := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleUser && u.WinCount > 0 {
			winners = append(winners, u)
		}
	}
	sort.SliceStable(winners, func(i, j int) bool {
		return winners[i].WinCount > winners[j].WinCount
	})
	entries := make([]models.LeaderboardEntry, len(winners))
	for i, u := range winners {
		entries[i] = models.LeaderboardEntry{Rank: i + 1, User: u}
	}
	return entries
}

// FilterLeaderboard оставляет записи, имя которых содержит search без учёта регистра.
// Места не пересчитываются.
func FilterLeaderboard(entries []models.LeaderboardEntry, search string) []models.LeaderboardEntry {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return entries
	}
	out := make([]models.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.User.DisplayName), term) {
			out = append(out, e)
		}
	}
	return out
}

func (s *leaderboardService) Leaderboard(ctx context.Context, search string, page int) (models.Page[models.LeaderboardEntry], error) {
	users, err := query.Get(ctx, s.cache, keyUsersAll, func(ctx context.Context) ([]models.User, error) {
		return s.userRepo.List(ctx)
	})
	if err != nil {
		return models.Page[models.LeaderboardEntry]{}, mapRepoError(err)
	}
	return models.Paginate(FilterLeaderboard(Rank(users), search), page, LeaderboardPageSize), nil
}
