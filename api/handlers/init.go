package handlers

import (
	"github.com/sendwell/sendguard/internal/repository"
	"github.com/sendwell/sendguard/services"
)

type APIHandlers struct {
	Accounts *AccountsHandler
	Triggers *TriggersHandler
	Reports  *ReportsHandler
	Jobs     *JobsHandler
}

func InitHandlers(s *services.Services, repos *repository.Repositories) *APIHandlers {
	return &APIHandlers{
		Accounts: NewAccountsHandler(repos.AccountRepository, s.Vault),
		Triggers: NewTriggersHandler(s.JobQueue),
		Reports:  NewReportsHandler(s.ReportGenerator),
		Jobs:     NewJobsHandler(repos.JobFailureRepository),
	}
}
