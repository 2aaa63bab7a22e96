package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
)

type AccountsHandler struct {
	accountRepository interfaces.AccountRepository
	vault             interfaces.CredentialVault
}

func NewAccountsHandler(accountRepository interfaces.AccountRepository, vault interfaces.CredentialVault) *AccountsHandler {
	return &AccountsHandler{
		accountRepository: accountRepository,
		vault:             vault,
	}
}

type RegisterAccountRequest struct {
	EmailAddress string `json:"emailAddress" binding:"required"`
	Provider     string `json:"provider" binding:"required"`
	Tier         string `json:"tier"`
	SmtpHost     string `json:"smtpHost"`
	SmtpPort     int    `json:"smtpPort"`
	SmtpUsername string `json:"smtpUsername"`
	SmtpPassword string `json:"smtpPassword"`
}

// Register creates a new sending account. SMTP passwords are sealed by the
// vault before they touch the database; new accounts start WARMING on day 0.
func (h *AccountsHandler) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.Register")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req RegisterAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		provider := enum.ProviderKind(req.Provider)
		switch provider {
		case enum.ProviderSMTP, enum.ProviderOAuth, enum.ProviderManagedPool:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider " + req.Provider})
			return
		}

		tier := enum.AccountTier(req.Tier)
		if tier == "" {
			tier = enum.TierFree
		}

		account := &models.EmailAccount{
			Tenant:       utils.GetTenantFromContext(ctx),
			EmailAddress: req.EmailAddress,
			Provider:     provider,
			Tier:         tier,
			SmtpHost:     req.SmtpHost,
			SmtpPort:     req.SmtpPort,
			SmtpUsername: req.SmtpUsername,
			Status:       enum.AccountStatusWarming,
		}

		if req.SmtpPassword != "" {
			sealed, err := h.vault.Encrypt(req.SmtpPassword)
			if err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credentials"})
				return
			}
			account.SmtpPasswordEncrypted = sealed
		}

		if err := h.accountRepository.Save(ctx, account); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		tracing.TagAccount(span, account.ID)
		c.JSON(http.StatusCreated, account)
	}
}

// Get returns a single account by id
func (h *AccountsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.Get")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		tracing.TagAccount(span, id)

		account, err := h.accountRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if account == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}

		c.JSON(http.StatusOK, account)
	}
}
