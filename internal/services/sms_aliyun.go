package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/alibaba-cloud-sdk-go/services/dysmsapi"

	"github.com/example/shafran-auth/internal/config"
)

type dysmsSender interface {
	SendSms(request *dysmsapi.SendSmsRequest) (*dysmsapi.SendSmsResponse, error)
}

// AliyunProvider sends SMS through Alibaba Cloud Dysms using a template that
// takes a single ${code} parameter.
type AliyunProvider struct {
	cfg    config.AliyunConfig
	client dysmsSender
}

// NewAliyunProvider builds the SDK client when credentials are present.
func NewAliyunProvider(cfg config.AliyunConfig) (*AliyunProvider, error) {
	p := &AliyunProvider{cfg: cfg}
	if !p.Configured() {
		return p, nil
	}

	client, err := dysmsapi.NewClientWithAccessKey(cfg.Region, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("aliyun sms client: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *AliyunProvider) Name() string { return "aliyun" }

func (p *AliyunProvider) Configured() bool {
	return p.cfg.AccessKeyID != "" && p.cfg.AccessKeySecret != "" &&
		p.cfg.SignName != "" && p.cfg.TemplateCode != ""
}

type dysmsResult struct {
	resp *dysmsapi.SendSmsResponse
	err  error
}

func (p *AliyunProvider) Deliver(ctx context.Context, msg SMSMessage) error {
	if p.client == nil {
		return fmt.Errorf("aliyun: client not initialised")
	}

	request := dysmsapi.CreateSendSmsRequest()
	request.Scheme = "https"
	request.PhoneNumbers = strings.TrimPrefix(msg.Phone, "+")
	request.SignName = p.cfg.SignName
	request.TemplateCode = p.cfg.TemplateCode
	request.TemplateParam = fmt.Sprintf(`{"code":"%s"}`, msg.Code)

	// The SDK call takes no context; bound it by ctx from the outside.
	done := make(chan dysmsResult, 1)
	go func() {
		resp, err := p.client.SendSms(request)
		done <- dysmsResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("aliyun: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("aliyun: %w", res.err)
		}
		if res.resp.Code != "OK" {
			return fmt.Errorf("aliyun: %s - %s", res.resp.Code, res.resp.Message)
		}
		return nil
	}
}
