package dto

type CreateCategoryRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=80"`
	Description *string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=80"`
	Description *string `json:"description"`
}

type CategoryResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
