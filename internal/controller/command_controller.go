package controller

import (
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/pkg/serverutils"
	"ai-knowledgebase-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICommandController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type commandController struct {
	service service.ICommandService
}

func NewCommandController(service service.ICommandService) ICommandController {
	return &commandController{service: service}
}

func (c *commandController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/command/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Submit)
	h.Get("stats", c.Stats)
	h.Get(":jobId", c.Status)
}

func (c *commandController) Submit(ctx *fiber.Ctx) error {
	var req dto.SubmitCommandRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Submit(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success submit command", res))
}

func (c *commandController) Status(ctx *fiber.Ctx) error {
	res, err := c.service.Status(ctx.UserContext(), ctx.Params("jobId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get job status", res))
}

func (c *commandController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get queue stats", res))
}
