package linkedin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

const maxImages = 20

type postRequest struct {
	Author                    string       `json:"author"`
	Commentary                string       `json:"commentary"`
	Visibility                string       `json:"visibility"`
	Distribution              distribution `json:"distribution"`
	Content                   *postContent `json:"content,omitempty"`
	LifecycleState            string       `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool         `json:"isReshareDisabledByAuthor"`
}

type distribution struct {
	FeedDistribution               string   `json:"feedDistribution"`
	TargetEntities                 []string `json:"targetEntities"`
	ThirdPartyDistributionChannels []string `json:"thirdPartyDistributionChannels"`
}

type postContent struct {
	Media      *mediaContent `json:"media,omitempty"`
	MultiImage *multiImage   `json:"multiImage,omitempty"`
	Article    *article      `json:"article,omitempty"`
}

type mediaContent struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type multiImage struct {
	Images []mediaContent `json:"images"`
}

type article struct {
	Source      string `json:"source"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func postURL(urn string) string {
	return "https://www.linkedin.com/feed/update/" + urn
}

// visibility maps the normalized privacy to LinkedIn's values.
func visibility(privacy string) string {
	if privacy == "private" {
		return "CONNECTIONS"
	}
	return "PUBLIC"
}

func (a *Adapter) createPost(ctx context.Context, cred social.Credential, text, privacy string, content *postContent) (string, error) {
	body := postRequest{
		Author:     authorURN(cred),
		Commentary: text,
		Visibility: visibility(privacy),
		Distribution: distribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []string{},
			ThirdPartyDistributionChannels: []string{},
		},
		Content:        content,
		LifecycleState: "PUBLISHED",
	}

	resp, err := a.do(ctx, cred, httpx.Request{Op: "create_post", Method: http.MethodPost, URL: "/rest/posts", JSON: body})
	if err != nil {
		return "", err
	}
	id := resp.Header.Get("X-RestLi-Id")
	if id == "" {
		return "", fmt.Errorf("create post returned no id")
	}
	return id, nil
}

func (a *Adapter) result(id string, mediaIDs []string) *social.PostResult {
	return &social.PostResult{
		Platform:  social.LinkedIn,
		ID:        id,
		URL:       postURL(id),
		Status:    social.StatusPublished,
		MediaIDs:  mediaIDs,
		CreatedAt: a.now().UTC(),
	}
}

func checkPost(cred social.Credential, post any, text string) error {
	if err := social.RequireAccount(cred); err != nil {
		return err
	}
	if err := social.Validate(post); err != nil {
		return err
	}
	return social.CheckLength(social.LinkedIn, text)
}

func (a *Adapter) PublishText(ctx context.Context, cred social.Credential, post social.TextPost) (*social.PostResult, error) {
	const op = "publish text"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	id, err := a.createPost(ctx, cred, post.Text, "", nil)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, nil), nil
}

func (a *Adapter) PublishImage(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish image"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) > maxImages {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: at most %d images per post", social.ErrInvalidRequest, maxImages))
	}

	images := make([]mediaContent, 0, len(post.Media))
	ids := make([]string, 0, len(post.Media))
	for i, m := range post.Media {
		urn, err := a.uploadImage(ctx, cred, m)
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("image %d: %w", i, err))
		}
		images = append(images, mediaContent{ID: urn})
		ids = append(ids, urn)
	}

	content := &postContent{Media: &images[0]}
	if len(images) > 1 {
		content = &postContent{MultiImage: &multiImage{Images: images}}
	}
	id, err := a.createPost(ctx, cred, post.Text, post.Privacy, content)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, ids), nil
}

func (a *Adapter) PublishVideo(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish video"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) != 1 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: exactly one video is required", social.ErrInvalidRequest))
	}

	urn, err := a.uploadVideo(ctx, cred, post.Media[0])
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	id, err := a.createPost(ctx, cred, post.Text, post.Privacy, &postContent{Media: &mediaContent{ID: urn, Title: post.Title}})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, []string{urn}), nil
}

func (a *Adapter) PublishLink(ctx context.Context, cred social.Credential, post social.LinkPost) (*social.PostResult, error) {
	const op = "publish link"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	content := &postContent{Article: &article{Source: post.URL, Title: post.Title, Description: post.Description}}
	id, err := a.createPost(ctx, cred, post.Text, "", content)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, nil), nil
}

func (a *Adapter) SchedulePost(ctx context.Context, cred social.Credential, post social.ScheduledPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.LinkedIn, "schedule post")
}

func (a *Adapter) DeletePost(ctx context.Context, cred social.Credential, postID string) error {
	const op = "delete post"
	if err := social.RequireToken(cred); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Require("post id", postID); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	_, err := a.do(ctx, cred, httpx.Request{Op: "delete_post", Method: http.MethodDelete, URL: "/rest/posts/" + escape(postID)})
	return a.wrap(social.ErrPublishing, op, err)
}

// uploadImage registers an image and PUTs its bytes to the returned URL.
func (a *Adapter) uploadImage(ctx context.Context, cred social.Credential, m social.Media) (string, error) {
	obj, err := media.Resolve(ctx, a.media, m)
	if err != nil {
		return "", err
	}
	defer obj.Close()
	if !strings.HasPrefix(obj.MIMEType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image", social.ErrInvalidRequest, obj.MIMEType)
	}

	var res struct {
		Value struct {
			UploadURL string `json:"uploadUrl"`
			Image     string `json:"image"`
		} `json:"value"`
	}
	err = a.call(ctx, cred, httpx.Request{
		Op:     "image_initialize_upload",
		Method: http.MethodPost,
		URL:    "/rest/images?action=initializeUpload",
		JSON:   map[string]any{"initializeUploadRequest": map[string]string{"owner": authorURN(cred)}},
	}, &res)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(obj, obj.Size+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	_, err = a.http.Do(ctx, httpx.Request{
		Op:          "image_upload",
		Method:      http.MethodPut,
		URL:         res.Value.UploadURL,
		Token:       cred.AccessToken,
		Body:        bytes.NewReader(data),
		ContentType: obj.MIMEType,
	})
	if err != nil {
		return "", err
	}
	return res.Value.Image, nil
}

func (a *Adapter) uploadVideo(ctx context.Context, cred social.Credential, m social.Media) (string, error) {
	obj, err := media.Resolve(ctx, a.media, m)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	resumeKey := m.ResumeKey
	if resumeKey != "" {
		resumeKey = authorURN(cred) + ":" + resumeKey
	}
	coord := upload.NewCoordinator(&videoUpload{a: a, cred: cred}, a.uploadCfg)
	return coord.Upload(ctx, upload.Source{
		Reader:    obj,
		Size:      obj.Size,
		MIMEType:  obj.MIMEType,
		ResumeKey: resumeKey,
	})
}

// UploadMedia uploads a video and returns its URN for later posts.
func (a *Adapter) UploadMedia(ctx context.Context, cred social.Credential, m social.Media) (string, error) {
	const op = "upload media"
	if err := social.RequireAccount(cred); err != nil {
		return "", a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Validate(m); err != nil {
		return "", a.wrap(social.ErrPublishing, op, err)
	}
	urn, err := a.uploadVideo(ctx, cred, m)
	return urn, a.wrap(social.ErrPublishing, op, err)
}
