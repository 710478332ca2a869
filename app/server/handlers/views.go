package handlers

import (
	"time"

	"secure-result-platform/app/server/models"
	"secure-result-platform/app/server/results"
)

type ResultView struct {
	ID        uint      `json:"id"`
	Matric    string    `json:"matric"`
	Subject   string    `json:"subject"`
	Score     float64   `json:"score"`
	Grade     string    `json:"grade"` // 读取时从分数推导，不落库
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResultView(r *models.Result) *ResultView {
	return &ResultView{
		ID:        r.ID,
		Matric:    r.Matric,
		Subject:   r.Subject,
		Score:     r.Score,
		Grade:     results.Grade(r.Score),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toResultViews(list []models.Result) []ResultView {
	views := []ResultView{}
	for i := range list {
		views = append(views, *toResultView(&list[i]))
	}
	return views
}
