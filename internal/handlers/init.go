package handlers

import (
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/notify"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/workflow"
)

// Shared instances wired at startup. Init must run after the environment
// has been loaded, since the workflow policy can be overridden there.
var (
	Engine  *workflow.Engine
	Deriver *notify.Deriver
	FeedHub *Hub
)

func Init() {
	Engine = workflow.NewEngine(config.DefaultWorkflowPolicy())
	Deriver = notify.NewDeriver(Engine)
	FeedHub = NewHub(Engine)
	go FeedHub.Run()
}
