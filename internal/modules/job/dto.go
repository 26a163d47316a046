package job

type CreateRequest struct {
	Code    string `json:"code" binding:"required,min=1,max=32"`
	Name    string `json:"name" binding:"required,min=2"`
	Address string `json:"address"`
}

type UpdateRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=2"`
	Address *string `json:"address"`
	Status  *string `json:"status" binding:"omitempty,oneof=active closed"`
}
