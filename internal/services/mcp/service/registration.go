package service

import (
	"fmt"

	"github.com/louisbranch/hiring.space/internal/services/mcp/domain"
	workerapp "github.com/louisbranch/hiring.space/internal/services/worker/app"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type registrationModule struct {
	name     string
	register func(*mcp.Server) error
}

type toolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newToolRegistrar[I any, O any]() toolRegistrar {
	return toolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var toolRegistrars = []toolRegistrar{
	newToolRegistrar[domain.RegisterCandidateInput, domain.CandidateResult](),
	newToolRegistrar[domain.CandidateInput, domain.CandidateResult](),
	newToolRegistrar[domain.ScoreAndGateInput, domain.ScoreAndGateResult](),
	newToolRegistrar[domain.TransitionInput, domain.TransitionResult](),
	newToolRegistrar[domain.CandidateInput, domain.AuditTrailResult](),
	newToolRegistrar[domain.CandidateInput, domain.AccessResult](),
	newToolRegistrar[domain.RedeemInterviewAccessInput, domain.RedemptionResult](),
	newToolRegistrar[domain.CompleteInterviewInput, domain.TransitionResult](),
	newToolRegistrar[domain.CandidateInput, domain.MarkInterviewCompletedResult](),
	newToolRegistrar[domain.CandidateInput, domain.NotificationsResult](),
	newToolRegistrar[domain.DrainInput, workerapp.DrainResult](),
	newToolRegistrar[domain.DeliveryAttemptsInput, domain.DeliveryAttemptsResult](),
}

func registerTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range toolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration does not support handler type %T for tool %q", handler, toolName)
}

type toolEntry struct {
	tool    *mcp.Tool
	handler any
}

func registerTools(server *mcp.Server, entries ...toolEntry) error {
	for _, entry := range entries {
		if err := registerTool(server, entry.tool, entry.handler); err != nil {
			return err
		}
	}
	return nil
}

func registrationModules(deps Dependencies) []registrationModule {
	modules := []registrationModule{
		{
			name: "candidate-tools",
			register: func(server *mcp.Server) error {
				return registerTools(server,
					toolEntry{domain.RegisterCandidateTool(), domain.RegisterCandidateHandler(deps.Pipeline)},
					toolEntry{domain.GetCandidateTool(), domain.GetCandidateHandler(deps.Pipeline)},
					toolEntry{domain.ScoreAndGateTool(), domain.ScoreAndGateHandler(deps.Pipeline)},
					toolEntry{domain.TransitionTool(), domain.TransitionHandler(deps.Pipeline)},
					toolEntry{domain.AuditTrailTool(), domain.AuditTrailHandler(deps.Pipeline)},
				)
			},
		},
		{
			name: "interview-tools",
			register: func(server *mcp.Server) error {
				return registerTools(server,
					toolEntry{domain.IssueInterviewAccessTool(), domain.IssueInterviewAccessHandler(deps.Pipeline)},
					toolEntry{domain.RedeemInterviewAccessTool(), domain.RedeemInterviewAccessHandler(deps.Pipeline)},
					toolEntry{domain.CompleteInterviewTool(), domain.CompleteInterviewHandler(deps.Pipeline)},
					toolEntry{domain.MarkInterviewCompletedTool(), domain.MarkInterviewCompletedHandler(deps.Pipeline)},
				)
			},
		},
		{
			name: "notification-tools",
			register: func(server *mcp.Server) error {
				return registerTools(server,
					toolEntry{domain.ListNotificationsTool(), domain.ListNotificationsHandler(deps.Pipeline)},
				)
			},
		},
		{
			name: "candidate-resources",
			register: func(server *mcp.Server) error {
				server.AddResourceTemplate(domain.CandidateResourceTemplate(), domain.CandidateResourceHandler(deps.Pipeline))
				return nil
			},
		},
	}
	if deps.Drainer != nil {
		modules = append(modules, registrationModule{
			name: "drain-tools",
			register: func(server *mcp.Server) error {
				return registerTools(server,
					toolEntry{domain.DrainNotificationsTool(), domain.DrainNotificationsHandler(deps.Drainer)},
				)
			},
		})
	}
	if deps.Attempts != nil {
		modules = append(modules, registrationModule{
			name: "attempt-tools",
			register: func(server *mcp.Server) error {
				return registerTools(server,
					toolEntry{domain.DeliveryAttemptsTool(), domain.DeliveryAttemptsHandler(deps.Attempts)},
				)
			},
		})
	}
	return modules
}
