package controller

import (
	"context"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/pkg/serverutils"
	"ai-knowledgebase-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISourceController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ListByNotebook(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Link(ctx *fiber.Ctx) error
	Unlink(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type sourceController struct {
	service service.ISourceService
}

func NewSourceController(service service.ISourceService) ISourceController {
	return &sourceController{service: service}
}

func (c *sourceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/source/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("notebook/:notebookId", c.ListByNotebook)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Post(":id/link", c.Link)
	h.Post(":id/unlink", c.Unlink)
	h.Delete(":id", c.Delete)
}

func (c *sourceController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSourceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create source", res))
}

func (c *sourceController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Show(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show source", res))
}

func (c *sourceController) ListByNotebook(ctx *fiber.Ctx) error {
	res, err := c.service.ListByNotebook(ctx.UserContext(), ctx.Params("notebookId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list sources", res))
}

func (c *sourceController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdateSourceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.Id = ctx.Params("id")

	res, err := c.service.Update(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update source", res))
}

func (c *sourceController) Link(ctx *fiber.Ctx) error {
	return c.link(ctx, c.service.Link, "Success link source")
}

func (c *sourceController) Unlink(ctx *fiber.Ctx) error {
	return c.link(ctx, c.service.Unlink, "Success unlink source")
}

func (c *sourceController) link(ctx *fiber.Ctx, op func(ctx context.Context, req *dto.LinkSourceRequest) error, message string) error {
	var req dto.LinkSourceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.SourceId = ctx.Params("id")

	if err := op(ctx.UserContext(), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(message, nil))
}

func (c *sourceController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete source", nil))
}
