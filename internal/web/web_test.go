package web

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docvault/internal/model"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner-1"

type pageFixture struct {
	app   *fiber.App
	docs  *serviceMocks.MockDocumentService
	users *serviceMocks.MockUserService
}

func newPageFixture() *pageFixture {
	docs := new(serviceMocks.MockDocumentService)
	users := new(serviceMocks.MockUserService)
	store := session.New()

	app := fiber.New(fiber.Config{Views: Engine()})
	NewPageHandler(docs, users, store).RegisterPages(app)

	return &pageFixture{app: app, docs: docs, users: users}
}

// loginAs drives the login form with a mocked Authenticate and returns the
// session cookies for subsequent requests.
func (f *pageFixture) loginAs(t *testing.T, userID string) []*http.Cookie {
	t.Helper()

	f.users.On("Authenticate", mock.Anything, "alice", "s3cret-pw").
		Return(&model.User{ID: userID, Username: "alice"}, nil).Once()

	form := "username=alice&password=s3cret-pw"
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies())

	return resp.Cookies()
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func TestHomePage(t *testing.T) {
	f := newPageFixture()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, _ := f.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := bodyString(t, resp)
	assert.Contains(t, body, "DocVault")
	assert.Contains(t, body, "Log in")
}

func TestDocumentPagesRequireLogin(t *testing.T) {
	f := newPageFixture()

	for _, path := range []string{"/documents/", "/documents/upload/", "/search/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode, "path %s", path)
		loc := resp.Header.Get(fiber.HeaderLocation)
		assert.True(t, strings.HasPrefix(loc, "/login?next="), "path %s redirects to %s", path, loc)
	}
}

func TestRegisterPage(t *testing.T) {
	t.Run("form renders", func(t *testing.T) {
		f := newPageFixture()

		req := httptest.NewRequest(http.MethodGet, "/register", nil)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, bodyString(t, resp), `action="/register"`)
	})

	t.Run("successful registration logs in and flashes a welcome", func(t *testing.T) {
		f := newPageFixture()

		f.users.On("Register", mock.Anything, service.RegisterInput{
			Username: "alice", Email: "alice@example.com", Password: "s3cret-pw", Password2: "s3cret-pw",
		}).Return(&model.User{ID: testOwner, Username: "alice"}, nil).Once()

		form := "username=alice&email=alice%40example.com&password1=s3cret-pw&password2=s3cret-pw"
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

		// Follow the redirect: the flash shows once, then is gone
		home := httptest.NewRequest(http.MethodGet, "/", nil)
		withCookies(home, resp.Cookies())
		homeResp, _ := f.app.Test(home)
		assert.Contains(t, bodyString(t, homeResp), "Registration successful! Welcome!")

		again := httptest.NewRequest(http.MethodGet, "/", nil)
		withCookies(again, resp.Cookies())
		againResp, _ := f.app.Test(again)
		assert.NotContains(t, bodyString(t, againResp), "Registration successful! Welcome!")

		f.users.AssertExpectations(t)
	})

	t.Run("validation errors re-render the form", func(t *testing.T) {
		f := newPageFixture()

		f.users.On("Register", mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Fields: map[string]string{"username": "a user with that username already exists"}}).Once()

		form := "username=alice&password1=s3cret-pw&password2=s3cret-pw"
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := bodyString(t, resp)
		assert.Contains(t, body, "a user with that username already exists")
		assert.Contains(t, body, `value="alice"`)
		f.users.AssertExpectations(t)
	})
}

func TestLoginPage(t *testing.T) {
	t.Run("bad credentials re-render with a warning", func(t *testing.T) {
		f := newPageFixture()

		f.users.On("Authenticate", mock.Anything, "alice", "wrong").
			Return(nil, service.ErrInvalidCredentials).Once()

		form := "username=alice&password=wrong"
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, bodyString(t, resp), "Invalid username or password.")
		f.users.AssertExpectations(t)
	})

	t.Run("login honors a safe next target", func(t *testing.T) {
		f := newPageFixture()

		f.users.On("Authenticate", mock.Anything, "alice", "s3cret-pw").
			Return(&model.User{ID: testOwner}, nil).Once()

		form := "username=alice&password=s3cret-pw&next=%2Fsearch%2F"
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/search/", resp.Header.Get(fiber.HeaderLocation))
	})

	t.Run("offsite next falls back to the document list", func(t *testing.T) {
		f := newPageFixture()

		f.users.On("Authenticate", mock.Anything, "alice", "s3cret-pw").
			Return(&model.User{ID: testOwner}, nil).Once()

		form := "username=alice&password=s3cret-pw&next=https%3A%2F%2Fevil.example"
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/documents/", resp.Header.Get(fiber.HeaderLocation))
	})
}

func TestDocumentListPage(t *testing.T) {
	f := newPageFixture()
	cookies := f.loginAs(t, testOwner)

	f.docs.On("List", mock.Anything, testOwner, service.ListFilter{Limit: 100}).
		Return(&service.DocumentListResult{
			Items: []model.Document{{ID: uuid.New().String(), Title: "Tax Report", Tags: "work,tax"}},
			Total: 1,
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/documents/", nil)
	withCookies(req, cookies)
	resp, _ := f.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := bodyString(t, resp)
	assert.Contains(t, body, "Tax Report")
	assert.Contains(t, body, `<span class="tag">work</span>`)
	f.docs.AssertExpectations(t)
}

func TestUploadPage(t *testing.T) {
	t.Run("successful upload redirects with a flash", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		f.docs.On("Upload", mock.Anything, testOwner, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Title == "Report" && in.Filename == "report.pdf" && in.Reader != nil
		})).Return(&model.Document{ID: uuid.New().String(), Title: "Report"}, nil).Once()

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("title", "Report")
		part, _ := writer.CreateFormFile("file", "report.pdf")
		part.Write([]byte("%PDF-1.4"))
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/documents/", resp.Header.Get(fiber.HeaderLocation))
		f.docs.AssertExpectations(t)
	})

	t.Run("validation failure re-renders the form with values", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		f.docs.On("Upload", mock.Anything, testOwner, mock.Anything).
			Return(nil, &service.ValidationError{Fields: map[string]string{
				"title": "this field is required",
				"file":  "this field is required",
			}}).Once()

		form := "description=notes&tags=a,b"
		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", strings.NewReader(form))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := bodyString(t, resp)
		assert.Contains(t, body, "this field is required")
		assert.Contains(t, body, "notes")
		f.docs.AssertExpectations(t)
	})
}

func TestDocumentDetailPage(t *testing.T) {
	t.Run("renders an owned document", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		id := uuid.New().String()
		f.docs.On("Get", mock.Anything, testOwner, id).
			Return(&model.Document{ID: id, Title: "Report", Filename: "report.pdf", StoragePath: "documents/x.pdf", Size: 8, Tags: "work"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := bodyString(t, resp)
		assert.Contains(t, body, "Report")
		assert.Contains(t, body, "report.pdf")
		assert.Contains(t, body, "/download/")
	})

	t.Run("unowned document renders the 404 page", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		id := uuid.New().String()
		f.docs.On("Get", mock.Anything, testOwner, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, bodyString(t, resp), "Not Found")
	})

	t.Run("malformed id renders the 404 page", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		req := httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDownloadPage(t *testing.T) {
	t.Run("streams the file as an attachment", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		id := uuid.New().String()
		doc := &model.Document{ID: id, Filename: "report.pdf", StoragePath: "documents/x.pdf", Size: 8}
		f.docs.On("Download", mock.Anything, testOwner, id).
			Return(io.NopCloser(strings.NewReader("%PDF-1.4")), doc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/octet-stream", resp.Header.Get(fiber.HeaderContentType))
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `"report.pdf"`)
		assert.Equal(t, "%PDF-1.4", bodyString(t, resp))
	})

	t.Run("document without a file redirects back with a warning", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		id := uuid.New().String()
		f.docs.On("Download", mock.Anything, testOwner, id).
			Return(nil, &model.Document{ID: id}, service.ErrNoFile).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/documents/"+id+"/", resp.Header.Get(fiber.HeaderLocation))
	})

	t.Run("missing blob redirects back and keeps metadata", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		id := uuid.New().String()
		f.docs.On("Download", mock.Anything, testOwner, id).
			Return(nil, &model.Document{ID: id, StoragePath: "documents/x.pdf"}, service.ErrFileMissing).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/documents/"+id+"/", resp.Header.Get(fiber.HeaderLocation))

		// The flash explains which failure happened
		detail := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/", nil)
		withCookies(detail, cookies)
		f.docs.On("Get", mock.Anything, testOwner, id).
			Return(&model.Document{ID: id, Title: "Report", StoragePath: "documents/x.pdf"}, nil).Once()
		detailResp, _ := f.app.Test(detail)
		assert.Contains(t, bodyString(t, detailResp), "File not found on server.")
	})
}

func TestSearchPage(t *testing.T) {
	t.Run("query shows matches", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		f.docs.On("Search", mock.Anything, testOwner, "tax").
			Return([]model.Document{{ID: uuid.New().String(), Title: "Tax Report"}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/search/?q=tax", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := bodyString(t, resp)
		assert.Contains(t, body, "Tax Report")
		assert.Contains(t, body, "1 result(s)")
	})

	t.Run("empty query shows no results", func(t *testing.T) {
		f := newPageFixture()
		cookies := f.loginAs(t, testOwner)

		f.docs.On("Search", mock.Anything, testOwner, "").
			Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/search/", nil)
		withCookies(req, cookies)
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, bodyString(t, resp), "result(s)")
	})
}

func TestLogout(t *testing.T) {
	f := newPageFixture()
	cookies := f.loginAs(t, testOwner)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	withCookies(req, cookies)
	resp, _ := f.app.Test(req)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	// The old session no longer grants access
	listReq := httptest.NewRequest(http.MethodGet, "/documents/", nil)
	withCookies(listReq, cookies)
	listResp, _ := f.app.Test(listReq)
	assert.Equal(t, fiber.StatusFound, listResp.StatusCode)
	assert.True(t, strings.HasPrefix(listResp.Header.Get(fiber.HeaderLocation), "/login?next="))
}
