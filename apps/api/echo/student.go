package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

type studentApi struct {
	svc grade.Service
}

func registerStudentAPI(g *echo.Group, svc grade.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:sid", api.retrieve)
	sg.PUT("/:sid", api.update)
	sg.DELETE("/:sid", api.delete)
	sg.GET("/no/:studentNo", api.retrieveByNo)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.QueryStudents(ctx.Request().Context(), page)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ok(ctx, res)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data grade.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	student, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ok(ctx, student)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	sid, err := pathID(ctx, "sid")
	if err != nil {
		return err
	}
	student, err := api.svc.StudentByID(ctx.Request().Context(), sid)
	if err != nil {
		return err
	}
	return ok(ctx, student)
}

func (api *studentApi) retrieveByNo(ctx echo.Context) error {
	student, err := api.svc.StudentByNo(ctx.Request().Context(), ctx.Param("studentNo"))
	if err != nil {
		return err
	}
	return ok(ctx, student)
}

func (api *studentApi) update(ctx echo.Context) error {
	sid, err := pathID(ctx, "sid")
	if err != nil {
		return err
	}
	var data grade.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	student, err := api.svc.UpdateStudent(ctx.Request().Context(), sid, data)
	if err != nil {
		return err
	}
	return ok(ctx, student)
}

// delete also removes the student's enrollments.
func (api *studentApi) delete(ctx echo.Context) error {
	sid, err := pathID(ctx, "sid")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteStudent(ctx.Request().Context(), sid); err != nil {
		return err
	}
	return ok(ctx, nil)
}

// helpers

func pathID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidField(name, errInvalidID)
	}
	return id, nil
}

func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &page); err != nil {
		return core.Page{}, errors.Wrap(err, "binding to Page")
	}
	return page, nil
}
