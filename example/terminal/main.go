package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	noahark "github.com/NikosBletsas/NoahArk-v2"
	"github.com/NikosBletsas/NoahArk-v2/api"
)

func main() {
	options := noahark.Options{
		APIBaseURL:         "http://localhost:5000",
		RequestTimeout:     10 * time.Second,
		ClientEventHandler: make(chan noahark.ClientEvent, 100),
	}

	client, err := noahark.NewClient(&options)
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}
	defer client.Close()

	go func() {
		for e := range options.ClientEventHandler {
			log.Printf("client event: %s %s %v", e.EventType, e.Status, e.Error)
		}
	}()

	client.Status.OnBatteryStatus(func(pct *float64) {
		if pct == nil {
			log.Println("battery: unknown")
			return
		}
		log.Printf("battery: %.0f%%", *pct)
	})
	client.Status.OnHeartBeat(func(payload json.RawMessage) {
		log.Printf("heartbeat: %s", payload)
	})

	ctx := context.Background()
	patients, err := client.SearchPatient(ctx, noahark.Patient{Surname: "Papadopoulos"})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	if len(patients) > 0 {
		client.Intake.PrefillFromPatient(patients[0])
	}

	client.Intake.UpdateFormData(map[string]string{
		api.CaseKey_VitalPulses: "96",
		api.CaseKey_VitalBP:     "135/85",
	})

	result, err := client.SubmitEmergencyCase(ctx)
	if err != nil {
		log.Fatalf("submit failed, form kept for retry: %v", err)
	}
	log.Printf("case %s created", result.CaseID)

	time.Sleep(30 * time.Second)
}
