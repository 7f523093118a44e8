package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Records       RecordStore
	Ingest        Ingestor
	Credentials   CredentialInfo
	Trajectories  PathGenerator
	UploadLimiter RateLimiter
	// BlobURL resolves stored blob paths to externally visible locations.
	BlobURL   func(key string) string
	LocalMode bool
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Records: deps.Records, Credentials: deps.Credentials, LocalMode: deps.LocalMode}
	users := UserHandler{Records: deps.Records, BlobURL: deps.BlobURL}
	stats := StatsHandler{Records: deps.Records}
	uploads := UploadHandler{Ingest: deps.Ingest, Limiter: deps.UploadLimiter}
	token := TokenHandler{Credentials: deps.Credentials}

	mux.HandleFunc("/health", health.Handle)
	mux.HandleFunc("/users", users.Handle)
	mux.HandleFunc("/get_exist_client", users.Lookup)
	mux.HandleFunc("/get_stats", stats.Handle)
	mux.HandleFunc("/upload_data", uploads.Media)
	mux.HandleFunc("/upload_video_data", uploads.Motion)
	mux.HandleFunc("/token_info", token.Handle)

	if deps.Trajectories != nil {
		trajectories := TrajectoryHandler{Generator: deps.Trajectories}
		mux.HandleFunc("/get_normalized_trajectory", trajectories.Handle)
	}
}
