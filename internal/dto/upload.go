package dto

type UploadRequest struct {
	Filename string `json:"filename" validate:"required"`
	DataURL  string `json:"dataUrl" validate:"required"`
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
}
