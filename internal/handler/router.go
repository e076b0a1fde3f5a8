package handler

import "github.com/gin-gonic/gin"

// Routes groups the handlers mounted by Register.
type Routes struct {
	Records *RecordHandler
	Uploads *UploadHandler
	Exports *ExportHandler
	Fetch   *FetchHandler
	Metrics *MetricsHandler
}

// Register mounts the per-entity endpoints for every entity plus the shared ones.
func (rt Routes) Register(r gin.IRouter, entities []string) {
	for _, entity := range entities {
		r.GET("/get-"+entity, rt.Records.List(entity))
		r.POST("/add-"+entity, rt.Records.Add(entity))
		r.PUT("/update-"+entity, rt.Records.Update(entity))
		r.DELETE("/delete-"+entity+"/:id", rt.Records.Delete(entity))
		r.POST("/save-"+entity, rt.Records.Save(entity))
		r.POST("/upload-"+entity, rt.Uploads.Upload(entity))
		r.GET("/export-"+entity, rt.Exports.Export(entity))
	}
	r.GET("/fetch/:table", rt.Fetch.Fetch)

	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Ready)
	r.GET("/metrics", rt.Metrics.Prometheus)
}
