package echoapi

import (
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core/result"
	"github.com/pobon98/school-management/services/metrics"
)

const (
	csvContentType = "text/csv; charset=utf-8"
	maxImportSize  = 2 << 20 // 2 MiB
)

type resultApi struct {
	svc     *result.Service
	metrics *metrics.Metrics
}

func registerResultAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := resultApi{svc: deps.ResultSvc, metrics: deps.Metrics}

	rg := g.Group("/results", jwt)
	rg.GET("/me", api.myResults, studentMiddleware())
	rg.GET("/sample", api.exportSample, staffMiddleware())

	sg := rg.Group("/sheet", staffMiddleware())
	sg.POST("", api.load)
	sg.GET("", api.sheet)
	sg.PATCH("/rows/:student_id", api.edit)
	sg.POST("/import", api.importCSV)
	sg.POST("/save", api.save)
	sg.GET("/export", api.exportCSV)
}

func (api *resultApi) load(ctx echo.Context) error {
	var sel result.Selection
	if err := ctx.Bind(&sel); err != nil {
		return errors.Wrap(err, "binding to Selection")
	}
	sh, err := api.svc.Load(ctx.Request().Context(), getSession(ctx), sel)
	if err != nil {
		return errors.Wrap(err, "loading sheet")
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *resultApi) sheet(ctx echo.Context) error {
	sh, err := api.svc.Sheet(getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "getting sheet")
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *resultApi) edit(ctx echo.Context) error {
	var data result.RowEdit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RowEdit")
	}
	row, err := api.svc.Edit(getSession(ctx), ctx.Param("student_id"), data)
	if err != nil {
		return errors.Wrap(err, "editing row")
	}
	return ctx.JSON(http.StatusOK, row)
}

// importText reads the uploaded file: a multipart "file" field, or the raw request body.
func importText(ctx echo.Context) (string, error) {
	var r io.Reader = ctx.Request().Body
	mediaType, _, _ := mime.ParseMediaType(ctx.Request().Header.Get(echo.HeaderContentType))
	if mediaType == echo.MIMEMultipartForm {
		fh, err := ctx.FormFile("file")
		if err != nil {
			return "", &result.FormatError{Msg: "No file uploaded."}
		}
		f, err := fh.Open()
		if err != nil {
			return "", errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()
		r = f
	}

	data, err := ioutil.ReadAll(io.LimitReader(r, maxImportSize+1))
	if err != nil {
		return "", errors.Wrap(err, "reading uploaded file")
	}
	if len(data) > maxImportSize {
		return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	return string(data), nil
}

func (api *resultApi) importCSV(ctx echo.Context) error {
	text, err := importText(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.Import(getSession(ctx), text)
	if err != nil {
		return errors.Wrap(err, "importing results")
	}
	api.metrics.ObserveImport(sum.Matched, sum.Skipped)
	return ctx.JSON(http.StatusOK, sum)
}

func (api *resultApi) save(ctx echo.Context) error {
	sum, err := api.svc.Save(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		if errors.Cause(err) != result.ErrSaveInProgress {
			api.metrics.ObserveSave("failed", 0, 0, 0)
		}
		return errors.Wrap(err, "saving results")
	}
	api.metrics.ObserveSave("ok", sum.Results, sum.Cgpas, len(sum.SkippedRows))
	return ctx.JSON(http.StatusOK, sum)
}

func attachCSV(ctx echo.Context, filename, content string) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return ctx.Blob(http.StatusOK, csvContentType, []byte(content))
}

func (api *resultApi) exportCSV(ctx echo.Context) error {
	filename, content, err := api.svc.ExportCSV(getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "exporting results")
	}
	return attachCSV(ctx, filename, content)
}

func (api *resultApi) exportSample(ctx echo.Context) error {
	class := strings.TrimSpace(ctx.QueryParam("class"))
	filename, content, err := api.svc.ExportSampleCSV(ctx.Request().Context(), getSession(ctx), class)
	if err != nil {
		return errors.Wrap(err, "exporting sample")
	}
	return attachCSV(ctx, filename, content)
}

func (api *resultApi) myResults(ctx echo.Context) error {
	report, err := api.svc.MyResults(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "getting results")
	}
	return ctx.JSON(http.StatusOK, report)
}
