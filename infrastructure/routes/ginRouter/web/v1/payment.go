package v1

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	apperrors "prothompay.io/application/appErrors"
	"prothompay.io/application/controller"
	"prothompay.io/application/controller/dto"
	"prothompay.io/application/interfaces"
)

func PaymentRouter(router *gin.RouterGroup) {
	checkoutRouter := router.Group("/checkout")
	{
		checkoutRouter.POST("/", func(ctx *gin.Context) {
			var body dto.CheckoutDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.InitiateCheckout(&interfaces.ApplicationContext[dto.CheckoutDTO]{
				Ctx:    ctx,
				Body:   &body,
				Header: ctx.Request.Header,
			})
		})
	}

	callbackRouter := router.Group("/callback")
	{
		handler := func(ctx *gin.Context) {
			body := dto.GatewayCallbackDTO{
				PaymentID: ctx.Query("paymentID"),
				Status:    ctx.Query("status"),
			}
			// webhook deliveries carry the same fields as a JSON body
			if body.PaymentID == "" && ctx.Request.Body != nil {
				raw, err := ctx.GetRawData()
				if err == nil && len(raw) != 0 {
					json.Unmarshal(raw, &body)
				}
			}
			controller.ProcessGatewayCallback(&interfaces.ApplicationContext[dto.GatewayCallbackDTO]{
				Ctx:    ctx,
				Body:   &body,
				Header: ctx.Request.Header,
			})
		}
		callbackRouter.GET("/bkash", handler)
		callbackRouter.POST("/bkash", handler)
	}
}
