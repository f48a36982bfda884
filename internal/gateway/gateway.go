package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	tickets "ms-invites/internal/tickets/service"
)

type TicketService interface {
	IssueBatch(ctx context.Context, baseName string, quantity int) ([]models.IssuedTicket, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetRedeemedTicketsCount(ctx context.Context) (int, error)
	DeleteAllTickets(ctx context.Context) (int, error)
}

// Media is one image attachment of a reply.
type Media struct {
	Caption  string
	Filename string
	Image    []byte
}

// Reply is what goes back to the requester: text, media, or both. Media
// is sent before Text.
type Reply struct {
	Text     string
	Markdown bool
	Media    []Media
}

type Gateway struct {
	Tickets     TicketService
	MaxQuantity int
	Logger      *logger.Logger
}

func NewGateway(svc TicketService, maxQuantity int, log *logger.Logger) *Gateway {
	return &Gateway{Tickets: svc, MaxQuantity: maxQuantity, Logger: log}
}

// Validate checks an Issue against the gateway limits.
func (g *Gateway) Validate(cmd Issue) error {
	if strings.TrimSpace(cmd.BaseName) == "" {
		return ErrMissingName
	}
	if cmd.Quantity < 1 {
		return ErrQuantityTooSmall
	}
	if g.MaxQuantity > 0 && cmd.Quantity > g.MaxQuantity {
		return ErrQuantityTooLarge
	}
	return nil
}

// Handle runs cmd and renders the reply. Failures become plain text.
func (g *Gateway) Handle(ctx context.Context, chatID int64, cmd Command) Reply {
	switch c := cmd.(type) {
	case Start:
		return Reply{Text: startMessage}
	case Help:
		return Reply{Text: helpMessage, Markdown: true}
	case Total:
		return g.total(ctx, chatID)
	case Redeemed:
		return g.redeemed(ctx, chatID)
	case DeleteAll:
		return g.deleteAll(ctx, chatID)
	case Issue:
		return g.issue(ctx, chatID, c)
	case Invalid:
		g.Logger.LogCommand(chatID, "invalid", c.Err.Error())
		return Reply{Text: g.invalidMessage(c.Err)}
	default:
		return Reply{Text: formatHint}
	}
}

func (g *Gateway) total(ctx context.Context, chatID int64) Reply {
	count, err := g.Tickets.GetTotalTicketsCount(ctx)
	if err != nil {
		g.Logger.Error("COMMAND", fmt.Sprintf("chat %d: total failed: %v", chatID, err))
		return Reply{Text: storageFailure}
	}
	return Reply{Text: fmt.Sprintf("Já foram gerados %d ingressos", count)}
}

func (g *Gateway) redeemed(ctx context.Context, chatID int64) Reply {
	count, err := g.Tickets.GetRedeemedTicketsCount(ctx)
	if err != nil {
		g.Logger.Error("COMMAND", fmt.Sprintf("chat %d: redeemed count failed: %v", chatID, err))
		return Reply{Text: storageFailure}
	}
	return Reply{Text: fmt.Sprintf("Temos %d no role atualmente", count)}
}

func (g *Gateway) deleteAll(ctx context.Context, chatID int64) Reply {
	deleted, err := g.Tickets.DeleteAllTickets(ctx)
	if err != nil {
		g.Logger.Error("COMMAND", fmt.Sprintf("chat %d: delete failed: %v", chatID, err))
		return Reply{Text: "Não foi possível apagar os registros. Nada foi alterado, tente novamente."}
	}
	g.Logger.LogCommand(chatID, "delete", fmt.Sprintf("%d tickets deleted", deleted))
	return Reply{Text: "Todos os registros foram deletados do banco de dados."}
}

func (g *Gateway) issue(ctx context.Context, chatID int64, cmd Issue) Reply {
	if err := g.Validate(cmd); err != nil {
		g.Logger.LogCommand(chatID, "issue", err.Error())
		return Reply{Text: g.invalidMessage(err)}
	}

	issued, err := g.Tickets.IssueBatch(ctx, cmd.BaseName, cmd.Quantity)
	if err == nil {
		g.Logger.LogCommand(chatID, "issue", fmt.Sprintf("%d tickets for %s", len(issued), cmd.BaseName))
		return Reply{Media: toMedia(issued)}
	}

	if errors.Is(err, tickets.ErrInvalidQuantity) || errors.Is(err, tickets.ErrInvalidName) {
		return Reply{Text: g.invalidMessage(err)}
	}

	g.Logger.Error("COMMAND", fmt.Sprintf("chat %d: issue %q x%d failed: %v", chatID, cmd.BaseName, cmd.Quantity, err))

	var batchErr *tickets.BatchIssuanceFailed
	if errors.As(err, &batchErr) && batchErr.Completed > 0 {
		return Reply{
			Media: toMedia(batchErr.Issued),
			Text: fmt.Sprintf("⚠️ Só foi possível gerar %d de %d convites. Os convites acima são válidos; "+
				"envie novamente para gerar os que faltaram.", batchErr.Completed, batchErr.Requested),
		}
	}
	return Reply{Text: "❌ Não foi possível gerar os convites. Tente novamente em instantes."}
}

func (g *Gateway) invalidMessage(err error) string {
	switch {
	case errors.Is(err, ErrQuantityTooLarge) && g.MaxQuantity > 0:
		return fmt.Sprintf("Posso gerar no máximo %d convites por mensagem.\nExemplo: João 3", g.MaxQuantity)
	case errors.Is(err, ErrQuantityTooLarge):
		return "Quantidade muito grande.\nExemplo: João 3"
	case errors.Is(err, ErrQuantityTooSmall), errors.Is(err, tickets.ErrInvalidQuantity):
		return "Por favor, escolha uma quantidade de pelo menos 1."
	}
	return formatHint
}

func toMedia(issued []models.IssuedTicket) []Media {
	media := make([]Media, 0, len(issued))
	for _, t := range issued {
		media = append(media, Media{
			Caption:  "Convite: " + t.DisplayName,
			Filename: fmt.Sprintf("convite_%d.png", t.TicketID),
			Image:    t.Image,
		})
	}
	return media
}

const (
	startMessage   = "Envie o nome + número de convites.\nExemplo: João 3"
	formatHint     = "Formato inválido! Envie no formato: Nome Quantidade\nExemplo: João 3"
	storageFailure = "Não foi possível consultar o banco de dados agora. Tente novamente em instantes."
	helpMessage    = "📖 *Comandos Disponíveis:*\n\n" +
		"/start - Inicia a interação com o bot.\n" +
		"/help - Mostra esta mensagem de ajuda.\n" +
		"/total - Mostra o total de ingressos gerados.\n" +
		"/norole - Mostra quantas pessoas já entraram no evento.\n" +
		"/delete - Apaga todos os registros do banco de dados.\n\n" +
		"📌 *Como gerar ingressos:*\n" +
		"Envie o nome + número de convites.\n" +
		"Exemplo: *João 3* (gera 3 QR Codes para João)"
)
