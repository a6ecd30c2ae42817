package router

import "skillswap/internal/domain"

// userCard 发现列表里的精简用户，不含邮箱
type userCard struct {
	ID                  string  `json:"id"`
	Username            string  `json:"username"`
	Name                string  `json:"name"`
	Bio                 string  `json:"bio"`
	Location            string  `json:"location"`
	Availability        string  `json:"availability"`
	Rating              float64 `json:"rating"`
	TotalRatings        int     `json:"totalRatings"`
	TotalCompletedSwaps int     `json:"totalCompletedSwaps"`
}

func userCards(us []domain.User) []userCard {
	out := make([]userCard, 0, len(us))
	for _, u := range us {
		out = append(out, userCard{
			ID:                  u.ID,
			Username:            u.Username,
			Name:                u.FullName(),
			Bio:                 u.Bio,
			Location:            u.Location,
			Availability:        u.Availability,
			Rating:              u.Rating,
			TotalRatings:        u.TotalRatings,
			TotalCompletedSwaps: u.TotalCompletedSwaps,
		})
	}
	return out
}

type swapView struct {
	*domain.SwapRequest
	From         *domain.UserSummary `json:"fromUser,omitempty"`
	To           *domain.UserSummary `json:"toUser,omitempty"`
	OfferedSkill *domain.Skill       `json:"offeredSkill,omitempty"`
	WantedSkill  *domain.Skill       `json:"wantedSkill,omitempty"`
}

func toSwapView(r *domain.SwapRequest) swapView {
	return swapView{
		SwapRequest:  r,
		From:         r.FromUser.Summary(),
		To:           r.ToUser.Summary(),
		OfferedSkill: r.OfferedSkill,
		WantedSkill:  r.WantedSkill,
	}
}

func swapViews(rs []domain.SwapRequest) []swapView {
	out := make([]swapView, 0, len(rs))
	for i := range rs {
		out = append(out, toSwapView(&rs[i]))
	}
	return out
}

type ratingView struct {
	*domain.Rating
	Rater *domain.UserSummary `json:"rater,omitempty"`
}

func ratingViews(rs []domain.Rating) []ratingView {
	out := make([]ratingView, 0, len(rs))
	for i := range rs {
		out = append(out, ratingView{Rating: &rs[i], Rater: rs[i].Rater.Summary()})
	}
	return out
}
