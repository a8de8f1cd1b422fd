package click

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickbattle/internal/bootstrap"
	"clickbattle/internal/broadcast"
	"clickbattle/internal/domain/player"
	errs "clickbattle/internal/errors"
	"clickbattle/internal/httpresponse"
	"clickbattle/internal/usecase/autoclick"
	clickuc "clickbattle/internal/usecase/click"
	"clickbattle/internal/utils"
)

type ClickHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	clickUC     *clickuc.ClickUseCase
	broadcaster *broadcast.Broadcaster
	ticker      *autoclick.Ticker
}

func NewClickHandler(cfg bootstrap.Config, log *zap.SugaredLogger, clickUC *clickuc.ClickUseCase, broadcaster *broadcast.Broadcaster, ticker *autoclick.Ticker) *ClickHandler {
	return &ClickHandler{
		cfg:         cfg,
		log:         log,
		clickUC:     clickUC,
		broadcaster: broadcaster,
		ticker:      ticker,
	}
}

// HandleRegister выдаёт устройству идентификатор по выбранному псевдониму.
func (h *ClickHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.log.Error("Register: only POST method is allowed")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req player.RegisterRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("Register: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	resp, err := h.clickUC.Register(r.Context(), req.Pseudo)
	if err != nil {
		h.writeUseCaseError(w, "Register", err)
		return
	}

	h.log.Infof("зарегистрировано новое устройство %s (pseudo=%s)", resp.DeviceID, req.Pseudo)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

// HandleClick применяет клик игрока и возвращает обновлённые счётчики.
func (h *ClickHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.log.Error("Click: only POST method is allowed")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req player.ClickRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("Click: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	resp, err := h.clickUC.SubmitClick(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, "Click", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

// HandlePurchase проводит покупку улучшения.
func (h *ClickHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.log.Error("Purchase: only POST method is allowed")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req player.PurchaseRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("Purchase: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	resp, err := h.clickUC.Purchase(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, "Purchase", err)
		return
	}

	h.log.Infof("куплено улучшение %s для %s, уровней: %d", req.UpgradeID, req.DeviceID, resp.Owned)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

// HandleUpgrades отдаёт каталог улучшений с ценами для устройства.
func (h *ClickHandler) HandleUpgrades(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	infos, err := h.clickUC.ListUpgrades(r.Context(), deviceID)
	if err != nil {
		h.writeUseCaseError(w, "Upgrades", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, infos)
}

func (h *ClickHandler) writeUseCaseError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrMissingIdentity),
		errors.Is(err, errs.ErrInvalidTeam),
		errors.Is(err, errs.ErrBadPseudo),
		errors.Is(err, errs.ErrUnknownUpgrade):
		h.log.Errorf("%s: %v", op, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
	case errors.Is(err, errs.ErrInsufficientFunds):
		h.log.Infof("%s: %v", op, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
	case errors.Is(err, errs.ErrConsistencyViolation):
		// нарушение инварианта — это баг, а не бизнес-ошибка,
		// наружу уходит только общий internal error
		h.log.Errorf("%s: %v", op, err)
		httpresponse.WriteInternalErrorResponse(w)
	default:
		h.log.Errorf("%s: %v", op, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: errs.ErrInternal.Error()})
	}
}
