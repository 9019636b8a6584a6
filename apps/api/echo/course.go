package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
)

type courseApi struct {
	svc grade.Service
}

func registerCourseAPI(g *echo.Group, svc grade.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:cid", api.retrieve)
	cg.PUT("/:cid", api.update)
	cg.DELETE("/:cid", api.delete)
	cg.GET("/no/:courseNo", api.retrieveByNo)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.QueryCourses(ctx.Request().Context(), page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ok(ctx, res)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data grade.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ok(ctx, course)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	cid, err := pathID(ctx, "cid")
	if err != nil {
		return err
	}
	course, err := api.svc.CourseByID(ctx.Request().Context(), cid)
	if err != nil {
		return err
	}
	return ok(ctx, course)
}

func (api *courseApi) retrieveByNo(ctx echo.Context) error {
	course, err := api.svc.CourseByNo(ctx.Request().Context(), ctx.Param("courseNo"))
	if err != nil {
		return err
	}
	return ok(ctx, course)
}

func (api *courseApi) update(ctx echo.Context) error {
	cid, err := pathID(ctx, "cid")
	if err != nil {
		return err
	}
	var data grade.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	course, err := api.svc.UpdateCourse(ctx.Request().Context(), cid, data)
	if err != nil {
		return err
	}
	return ok(ctx, course)
}

func (api *courseApi) delete(ctx echo.Context) error {
	cid, err := pathID(ctx, "cid")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), cid); err != nil {
		return err
	}
	return ok(ctx, nil)
}
