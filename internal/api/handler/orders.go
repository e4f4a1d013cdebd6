package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/mealdesk/mealdesk/internal/dashboard"
)

// Admin lists the orders of the selected date, today by default.
func (h *Handler) Admin(c *gin.Context) {
	date := h.dashboard.ResolveDate(c.Query("date"))

	view, err := h.dashboard.List(c.Request.Context(), date)
	data := gin.H{
		"Title": "Orders",
		"Date":  date,
		"View":  view,
	}
	if err != nil {
		data["LoadError"] = dashboard.Message(err)
	}
	h.render(c, "admin.html", data)
}

// NewOrder shows the create form with the users that have no order yet.
func (h *Handler) NewOrder(c *gin.Context) {
	date := h.dashboard.ResolveDate(c.Query("date"))

	form, err := h.dashboard.OpenCreate(c.Request.Context(), date)
	if err != nil {
		addFlash(c, flashError, dashboard.Message(err))
		redirectToDate(c, date)
		return
	}
	h.render(c, "create.html", gin.H{
		"Title": "Create Order",
		"Form":  form,
	})
}

// CreateOrder submits the create form.
func (h *Handler) CreateOrder(c *gin.Context) {
	var input dashboard.CreateInput
	if err := c.ShouldBind(&input); err != nil {
		log.Debug("Failed to bind create form", "error", err)
	}
	date := h.dashboard.ResolveDate(input.Date)

	if err := h.dashboard.SubmitCreate(c.Request.Context(), input, actor(c)); err != nil {
		addFlash(c, flashError, dashboard.Message(err))
		c.Redirect(http.StatusFound, "/admin/orders/new?date="+url.QueryEscape(date))
		return
	}

	addFlash(c, flashSuccess, "Order created")
	redirectToDate(c, date)
}

// EditOrder shows the edit form populated from the most recent order of a user.
func (h *Handler) EditOrder(c *gin.Context) {
	date := h.dashboard.ResolveDate(c.Query("date"))

	form, err := h.dashboard.OpenEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		addFlash(c, flashError, dashboard.Message(err))
		redirectToDate(c, date)
		return
	}
	h.render(c, "edit.html", gin.H{
		"Title": "Edit Order",
		"Date":  date,
		"Form":  form,
	})
}

// UpdateOrder submits the edit form for the viewed date. On failure the form
// is shown again with the submitted values.
func (h *Handler) UpdateOrder(c *gin.Context) {
	var form dashboard.EditForm
	if err := c.ShouldBind(&form); err != nil {
		log.Debug("Failed to bind edit form", "error", err)
	}
	form.WhatsappID = c.Param("id")
	date := h.dashboard.ResolveDate(c.PostForm("date"))

	if err := h.dashboard.SubmitEdit(c.Request.Context(), form, date, actor(c)); err != nil {
		h.render(c, "edit.html", gin.H{
			"Title": "Edit Order",
			"Date":  date,
			"Form":  &form,
		}, dashboard.Message(err))
		return
	}

	addFlash(c, flashSuccess, "Order updated")
	redirectToDate(c, date)
}

// ConfirmCancel asks for confirmation before canceling an order.
func (h *Handler) ConfirmCancel(c *gin.Context) {
	h.render(c, "cancel.html", gin.H{
		"Title":      "Cancel Order",
		"WhatsappID": c.Param("id"),
		"Date":       h.dashboard.ResolveDate(c.Query("date")),
	})
}

// CancelOrder cancels an order once the confirm field is set.
func (h *Handler) CancelOrder(c *gin.Context) {
	id := c.Param("id")
	date := h.dashboard.ResolveDate(c.PostForm("date"))
	confirmed := c.PostForm("confirm") == "yes"

	err := h.dashboard.Cancel(c.Request.Context(), id, date, confirmed, actor(c))
	switch {
	case errors.Is(err, dashboard.ErrNotConfirmed):
		h.render(c, "cancel.html", gin.H{
			"Title":      "Cancel Order",
			"WhatsappID": id,
			"Date":       date,
		})
		return
	case err != nil:
		addFlash(c, flashError, dashboard.Message(err))
	default:
		addFlash(c, flashSuccess, "Order canceled")
	}
	redirectToDate(c, date)
}
