package deepface

// RepresentRequest for POST /represent.
type RepresentRequest struct {
	Img      string `json:"img"` // base64 encoded image
	Model    string `json:"model"`
	Detector string `json:"detector"`
}

// RepresentResponse from POST /represent. One result per detected face.
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence float64    `json:"face_confidence"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// VerifyRequest for POST /verify.
type VerifyRequest struct {
	Img1           string `json:"img1"` // base64 encoded image
	Img2           string `json:"img2"` // base64 encoded image
	Model          string `json:"model"`
	Detector       string `json:"detector"`
	DistanceMetric string `json:"distance_metric"`
}

// VerifyResponse from POST /verify.
type VerifyResponse struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
}
