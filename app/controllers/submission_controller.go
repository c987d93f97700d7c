package controllers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/csvexport"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

type SubmissionController struct {
	*Deps
}

func NewSubmissionController(d *Deps) *SubmissionController {
	return &SubmissionController{Deps: d}
}

func (sc *SubmissionController) ownedForm(c *fiber.Ctx) (*models.Form, error) {
	return sc.Repos.Form.GetByIDForUser(c.UserContext(), c.Params("id"), usercontext.GetUserID(c))
}

// List returns one page of the form's submissions, newest first. A malformed
// cursor yields the first page.
func (sc *SubmissionController) List(c *fiber.Ctx) error {
	form, err := sc.ownedForm(c)
	if err != nil {
		return lookupError(c, "Submissions", "Form", err)
	}

	page, err := sc.Repos.Submission.Page(c.UserContext(), form.ID, pager.Options{
		Limit:  pager.ClampLimit(c.Query("limit")),
		Cursor: c.Query("cursor"),
		Search: c.Query("q"),
		Range:  c.Query("range"),
	})
	if err != nil {
		return internalError(c, "Submissions", err)
	}
	return c.JSON(page)
}

func (sc *SubmissionController) Delete(c *fiber.Ctx) error {
	form, err := sc.ownedForm(c)
	if err != nil {
		return lookupError(c, "Submissions", "Form", err)
	}
	if err := sc.Repos.Submission.Delete(c.UserContext(), form.ID, c.Params("sid")); err != nil {
		return lookupError(c, "Submissions", "Submission", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadCSV streams the filtered submissions as a CSV attachment.
func (sc *SubmissionController) DownloadCSV(c *fiber.Ctx) error {
	form, err := sc.ownedForm(c)
	if err != nil {
		return lookupError(c, "Submissions", "Form", err)
	}

	subs, err := sc.Repos.Submission.ListForExport(c.UserContext(), form.ID, c.Query("q"), c.Query("range"))
	if err != nil {
		return internalError(c, "Submissions", err)
	}

	var buf bytes.Buffer
	if err := csvexport.Write(&buf, subs); err != nil {
		return internalError(c, "Submissions", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, csvexport.Filename(form.Slug, sc.now())))
	return c.Send(buf.Bytes())
}

// Export queues an upload of the filtered submissions to object storage.
func (sc *SubmissionController) Export(c *fiber.Ctx) error {
	if sc.Exports == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "export_disabled", "Exports to object storage are not enabled")
	}
	form, err := sc.ownedForm(c)
	if err != nil {
		return lookupError(c, "Submissions", "Form", err)
	}

	job, err := sc.Exports.EnqueueSubmissionExport(c.UserContext(), jobqueue.SubmissionExportJobPayload{
		FormID: form.ID,
		UserID: form.UserID,
		Search: c.Query("q"),
		Range:  c.Query("range"),
	})
	if err != nil {
		return internalError(c, "Submissions", err)
	}
	log.Infof("[Submissions] Export job %s queued for form %s", job.ID, form.ID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "status": job.Status})
}
