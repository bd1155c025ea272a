// nutri_token 为本地联调签发 Access Token
//
//	go run ./cmd/nutri_token -user U1001 -role user
package main

import (
	"flag"
	"fmt"
	"log"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/util/jwt"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时按默认路径查找")
	userId := flag.String("user", "", "用户 id")
	role := flag.String("role", user_role_enum.Subject, "角色：user / agent / system")
	flag.Parse()

	if *userId == "" || !user_role_enum.Valid(*role) {
		log.Fatalf("usage: nutri_token -user <id> -role <user|agent|system>")
	}
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	conf := config.GetConfig()

	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	token, err := jwt.GenerateAccessToken(*userId, *role)
	if err != nil {
		log.Fatalf("generate token failed: %v", err)
	}
	fmt.Println(token)
}
