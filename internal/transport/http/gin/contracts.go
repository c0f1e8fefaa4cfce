package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/lineup"
	redisrepo "github.com/kirinyoku/gigbook/internal/repository/redis"
	"github.com/kirinyoku/gigbook/internal/service"
	"github.com/kirinyoku/gigbook/internal/service/contracts"
)

// @Summary  Propose a contract (idempotent)
// @Description  Set booking_request_id to propose on a request you received, or venue_id to propose directly to a venue.
// @Security BearerAuth
// @Param    req body  CreateProposalRequest true "payload"
// @Success  201 {object} domain.ContractProposal
// @Failure  400 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse
// @Router   /v1/contract-proposals [post]
func handleCreateProposal(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProposalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		acting := activeProfile(c).ID
		createOnce(c, idem, "contract", acting, func() (any, error) {
			return svcs.Contracts.Create(c.Request.Context(), acting, contracts.CreateInput{
				BookingRequestID: req.BookingRequestID,
				VenueID:          req.VenueID,
				Title:            req.Title,
				Description:      req.Description,
				Terms:            req.Terms,
				Payment:          req.Payment,
				Requirements:     req.Requirements,
				Attachments:      req.Attachments,
				ExpiresAt:        req.ExpiresAt,
			})
		})
	}
}

// @Summary  List proposals sent or received by the active profile
// @Security BearerAuth
// @Success  200 {array} domain.ContractProposal
// @Router   /v1/contract-proposals [get]
func handleListProposals(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Contracts.ListForProfile(c.Request.Context(), activeProfile(c).ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Get proposal with negotiation log and signatures
// @Security BearerAuth
// @Param    id  path  int  true  "Proposal ID"
// @Success  200 {object} domain.ContractDetail
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/contract-proposals/{id} [get]
func handleGetProposal(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		d, err := svcs.Contracts.GetDetail(c.Request.Context(), id, activeProfile(c).ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// @Summary  Accept a proposal
// @Security BearerAuth
// @Param    id  path  int  true  "Proposal ID"
// @Success  200 {object} domain.ContractProposal
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "not open, current_status set"
// @Router   /v1/contract-proposals/{id}/accept [post]
func handleAcceptProposal(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Contracts.Accept(c.Request.Context(), id, activeProfile(c).ID, contracts.Audit{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Reject a proposal
// @Security BearerAuth
// @Param    id  path  int  true  "Proposal ID"
// @Param    req body  RejectProposalRequest false "payload"
// @Success  200 {object} domain.ContractProposal
// @Failure  409 {object} ErrorResponse
// @Router   /v1/contract-proposals/{id}/reject [post]
func handleRejectProposal(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req RejectProposalRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		p, err := svcs.Contracts.Reject(c.Request.Context(), id, activeProfile(c).ID, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Add a negotiation message
// @Security BearerAuth
// @Param    id  path  int  true  "Proposal ID"
// @Param    req body  NegotiateRequest true "payload"
// @Success  200 {object} domain.ContractProposal
// @Failure  409 {object} ErrorResponse
// @Router   /v1/contract-proposals/{id}/negotiate [post]
func handleNegotiateProposal(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req NegotiateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svcs.Contracts.Negotiate(c.Request.Context(), id, activeProfile(c).ID, req.Message, req.ProposedChanges)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Add a performer to a lineup
// @Security BearerAuth
// @Param    req body  LineupAddRequest true "payload"
// @Success  200 {object} LineupResponse
// @Router   /v1/lineup/add [post]
func handleLineupAdd() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LineupAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondLineup(c)(lineup.Add(req.Lineup, req.Performer))
	}
}

// @Summary  Remove a performer from a lineup
// @Security BearerAuth
// @Param    req body  LineupRemoveRequest true "payload"
// @Success  200 {object} LineupResponse
// @Router   /v1/lineup/remove [post]
func handleLineupRemove() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LineupRemoveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondLineup(c)(lineup.Remove(req.Lineup, req.PerformerID))
	}
}

// @Summary  Move a support act within a lineup
// @Security BearerAuth
// @Param    req body  LineupReorderRequest true "payload"
// @Success  200 {object} LineupResponse
// @Router   /v1/lineup/reorder [post]
func handleLineupReorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LineupReorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondLineup(c)(lineup.Reorder(req.Lineup, req.PerformerID, req.NewOrder))
	}
}

func respondLineup(c *gin.Context) func([]domain.PerformerRole, error) {
	return func(l []domain.PerformerRole, err error) {
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, LineupResponse{Lineup: l})
	}
}
