package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type LoginInput struct {
	Body struct {
		Email    string `json:"email" format:"email" doc:"Operator email"`
		Password string `json:"password" minLength:"8" doc:"Operator password"`
	}
}

type LoginOutput struct {
	Body struct {
		AccessToken string `json:"access_token"`
	}
}

func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "operator-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Operator login",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		token, err := authSvc.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid credentials")
		}

		out := &LoginOutput{}
		out.Body.AccessToken = token
		return out, nil
	})
}
