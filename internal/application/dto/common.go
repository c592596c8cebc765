package dto

// ErrorResponse corps d'erreur HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PeriodRequest période de consultation du registre (dates AAAA-MM-JJ, bornes incluses).
type PeriodRequest struct {
	StoreID string `query:"store_id" validate:"omitempty,uuid"`
	From    string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}
