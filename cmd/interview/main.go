// Hirevox interview CLI - runs one AI-led screening interview end to end:
// fetches the job and candidate from the recruiting backend, opens a
// realtime voice session, and lets the model drive the interview through
// its tool calls.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hirevox/hirevox/internal/config"
	"github.com/hirevox/hirevox/internal/log"
	"github.com/hirevox/hirevox/pkg/atsclient"
	"github.com/hirevox/hirevox/pkg/interview"
	"github.com/hirevox/hirevox/pkg/realtime"
	"github.com/hirevox/hirevox/pkg/transcript"
	"github.com/hirevox/hirevox/pkg/web"
)

const instructions = `You are a professional, friendly AI interviewer conducting a screening
interview. Call start_interview first to load the job, the candidate, and
the question list. Ask the questions one at a time, conversationally;
record each with ask_question (pass the question text verbatim and its id).
After the candidate answers, call evaluate_answer with the full answer.
Use take_notes for observations worth keeping. When all questions are
covered, thank the candidate and call end_interview with an overall score
and a short summary.`

func main() {
	candidateID := flag.String("candidate", "", "Candidate id (required)")
	jobID := flag.String("job", "", "Job id (required)")
	atsBase := flag.String("ats", config.ATSBaseURL(""), "Recruiting backend base URL")
	voice := flag.String("voice", config.Voice(), "Synthetic interviewer voice")
	transport := flag.String("transport", "webrtc", "Event transport: webrtc or websocket")
	realtimeURL := flag.String("realtime-url", "", "Override the realtime endpoint (HTTP for webrtc, ws for websocket)")
	dashboard := flag.String("dashboard", "", "Serve the live dashboard on this port (empty disables)")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	if *candidateID == "" || *jobID == "" {
		fmt.Fprintln(os.Stderr, "Error: -candidate and -job are required")
		flag.Usage()
		os.Exit(1)
	}

	log.Init(*logLevel)
	apiKey := config.OpenAIKey()

	backend := atsclient.New(*atsBase, atsclient.WithLogger(log.L()))
	orch := interview.New(*candidateID, *jobID, backend, backend, backend, backend, log.L())

	opts := []realtime.Option{
		realtime.WithAPIKey(apiKey),
		realtime.WithVoice(*voice),
		realtime.WithInstructions(instructions),
		realtime.WithTransport(realtime.Transport(*transport)),
		realtime.WithLogger(log.L()),
	}
	if *realtimeURL != "" {
		if realtime.Transport(*transport) == realtime.TransportWebSocket {
			opts = append(opts, realtime.WithRealtimeWSURL(*realtimeURL))
		} else {
			opts = append(opts, realtime.WithRealtimeURL(*realtimeURL))
		}
	}
	session, err := realtime.NewSession(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session.Registry().RegisterAll(orch.Tools(session.Log()))

	var server *web.Server
	if *dashboard != "" {
		server = web.NewServer(web.Config{
			Port:   *dashboard,
			APIKey: apiKey,
			Logger: log.L(),
		})
		server.StartAsync()
		defer server.Shutdown()
		session.OnLevels(server.PublishLevels)
	}

	// The log is cleared on Stop; keep the last snapshot for the final
	// printout.
	var (
		finalMu    sync.Mutex
		finalTurns []transcript.Turn
	)
	session.OnStatus(func(status string) {
		fmt.Printf("[%s]\n", status)
		if server != nil {
			server.SetStatus(status, "")
		}
	})
	session.OnTranscriptChange(func(turns []transcript.Turn) {
		finalMu.Lock()
		finalTurns = turns
		finalMu.Unlock()
		if n := len(turns); n > 0 && turns[n-1].Final {
			printTurn(turns[n-1])
		}
		if server != nil {
			server.PublishTranscript(turns)
		}
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
	session.Stop()

	finalMu.Lock()
	turns := finalTurns
	finalMu.Unlock()
	if len(turns) > 0 {
		fmt.Println("\n--- Transcript ---")
		for _, turn := range turns {
			printTurn(turn)
		}
	}
	if s := orch.Session(); s != nil && !s.Active {
		fmt.Printf("\nInterview complete: score %d/100\n%s\n", s.OverallScore, s.Summary)
	}
}

func printTurn(turn transcript.Turn) {
	speaker := "Candidate"
	if turn.Role == transcript.RoleAssistant {
		speaker = "Interviewer"
	}
	fmt.Printf("%s: %s\n", speaker, turn.Text)
}
