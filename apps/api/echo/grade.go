package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
)

type gradeApi struct {
	svc grade.Service
}

func registerGradeAPI(g *echo.Group, svc grade.Service) {
	api := gradeApi{svc: svc}

	sc := g.Group("/student-courses")
	sc.GET("", api.query)
	sc.POST("/select", api.selectCourse)
	sc.POST("/drop", api.drop)
	sc.POST("/regular-score", api.regularScore)
	sc.POST("/exam-score", api.examScore)
	sc.POST("/final-score", api.finalScore)

	sc.GET("/student/:sid", api.studentGrades)
	sc.GET("/course/:cid", api.courseGrades)
	sc.GET("/grades/student/:sid", api.studentGrades)
	sc.GET("/grades/course/:cid", api.courseGrades)
	sc.GET("/grades/stats/:cid", api.courseStats)
}

// Handlers

func (api *gradeApi) selectCourse(ctx echo.Context) error {
	key, err := bindKey(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Select(ctx.Request().Context(), key); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api *gradeApi) drop(ctx echo.Context) error {
	key, err := bindKey(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Drop(ctx.Request().Context(), key); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api *gradeApi) regularScore(ctx echo.Context) error {
	key, err := bindKey(ctx)
	if err != nil {
		return err
	}
	score, err := scoreParam(ctx, "regularScore")
	if err != nil {
		return err
	}
	if err = api.svc.RecordRegularScore(ctx.Request().Context(), key, score); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api *gradeApi) examScore(ctx echo.Context) error {
	key, err := bindKey(ctx)
	if err != nil {
		return err
	}
	score, err := scoreParam(ctx, "examScore")
	if err != nil {
		return err
	}
	if err = api.svc.RecordExamScore(ctx.Request().Context(), key, score); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api *gradeApi) finalScore(ctx echo.Context) error {
	key, err := bindKey(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Finalize(ctx.Request().Context(), key); err != nil {
		return err
	}
	return ok(ctx, nil)
}

// query pages through the enrollments, optionally narrowed by studentSid, courseCid and semester.
func (api *gradeApi) query(ctx echo.Context) error {
	var filter grade.GradeFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &filter); err != nil {
		return errors.Wrap(err, "binding to GradeFilter")
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.QueryEnrollments(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ok(ctx, res)
}

func (api *gradeApi) studentGrades(ctx echo.Context) error {
	sid, err := pathID(ctx, "sid")
	if err != nil {
		return err
	}
	grades, err := api.svc.StudentGrades(ctx.Request().Context(), sid, ctx.QueryParam("semester"))
	if err != nil {
		return err
	}
	return ok(ctx, grades)
}

func (api *gradeApi) courseGrades(ctx echo.Context) error {
	cid, err := pathID(ctx, "cid")
	if err != nil {
		return err
	}
	grades, err := api.svc.CourseGrades(ctx.Request().Context(), cid, ctx.QueryParam("semester"))
	if err != nil {
		return err
	}
	return ok(ctx, grades)
}

func (api *gradeApi) courseStats(ctx echo.Context) error {
	cid, err := pathID(ctx, "cid")
	if err != nil {
		return err
	}
	stats, err := api.svc.CourseStats(ctx.Request().Context(), cid, ctx.QueryParam("semester"))
	if err != nil {
		return err
	}
	return ok(ctx, stats)
}

// helpers

// bindKey reads an enrollment key from the query string and the form body; the body wins.
func bindKey(ctx echo.Context) (grade.EnrollmentKey, error) {
	var key grade.EnrollmentKey
	binder := &echo.DefaultBinder{}
	if err := binder.BindQueryParams(ctx, &key); err != nil {
		return key, errors.Wrap(err, "binding query to EnrollmentKey")
	}
	if err := binder.BindBody(ctx, &key); err != nil {
		return key, errors.Wrap(err, "binding body to EnrollmentKey")
	}
	return key, nil
}

func scoreParam(ctx echo.Context, name string) (float64, error) {
	value := strings.TrimSpace(ctx.FormValue(name))
	if value == "" {
		return 0, invalidField(name, "this field is required")
	}
	score, err := strconv.ParseFloat(value, 64)
	if err != nil || !grade.ValidScore(score) {
		return 0, invalidField(name, errInvalidScore)
	}
	return score, nil
}
