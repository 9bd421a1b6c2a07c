// Package inferbridge implements the boundary layer between a host
// application and an on-device inference engine: component lifecycle for
// language-model, speech-recognition, speech-synthesis, voice-activity
// and vision components, streaming token delivery, and the host-callback
// services (platform adapter, device registration, telemetry) the engine
// depends on.
//
// Example:
//
//	adapter, err := platform.NewFileAdapter("/data/app/secure.json", key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := platform.Set(adapter); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := inferbridge.NewConfig()
//	if err := inferbridge.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer inferbridge.Shutdown()
//
//	llm, err := component.NewLLM()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer llm.Destroy()
//
//	if err := llm.LoadModel("/models/q4.gguf", "q4", ""); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := llm.GenerateStream("Hello", `{"max_tokens": 64}`)
package inferbridge
